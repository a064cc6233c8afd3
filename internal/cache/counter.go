package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithExpiryScript bumps a counter and stamps its window on first
// increment, returning the count and remaining TTL atomically.
var incrWithExpiryScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// IncrWithExpiry atomically increments key within a rolling window.
// Unlike Get/Set/Delete this returns errors: the rate-limit middleware
// needs to distinguish backend failure so it can fall back to its local
// limiter rather than silently admitting everything.
func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error) {
	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := incrWithExpiryScript.Run(ctx, s.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected counter response shape: %T", raw)
	}
	count, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected counter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected counter ttl type: %T", values[1])
	}

	return count, time.Duration(ttlMs) * time.Millisecond, nil
}
