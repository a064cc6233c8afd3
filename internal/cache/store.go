// Package cache provides the shared cache store used by the entitlement
// core. The store is deliberately fail-open: backend unavailability
// degrades reads to misses and writes to no-ops, so a broken cache can
// never grant access, only force a fresh authoritative check.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store is a get/set/delete key-value abstraction with TTL support.
// Implementations never surface backend errors to the caller: a failed
// read is a miss, a failed write is a no-op, and failures are logged.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

var _ Store = (*RedisStore)(nil)

// RedisStore backs Store with a shared redis instance.
type RedisStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

func NewRedisStore(client redis.UniversalClient, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "cache get failed, treating as miss",
				slog.String("key", key), slog.Any("error", err))
		}
		return nil, false
	}
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "cache set failed, skipping",
			slog.String("key", key), slog.Any("error", err))
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.WarnContext(ctx, "cache delete failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore backs Store with an in-process go-cache instance. Used in
// tests and in environments running without a redis backend.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	val, found := s.c.Get(key)
	if !found {
		return nil, false
	}
	b, ok := val.([]byte)
	if !ok {
		return nil, false
	}
	return b, true
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.c.Set(key, value, ttl)
}

func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.c.Delete(key)
}

var _ Store = (*NoopStore)(nil)

// NoopStore always misses. It is the null object substituted when no
// cache backend is configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (*NoopStore) Get(context.Context, string) ([]byte, bool)           { return nil, false }
func (*NoopStore) Set(context.Context, string, []byte, time.Duration)   {}
func (*NoopStore) Delete(context.Context, string)                       {}
