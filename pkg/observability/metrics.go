// Package observability holds the prometheus collectors for the
// entitlement core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts cache lookups by namespace and result
	// (hit, miss, stale). "stale" is a hit whose payload failed the
	// read-time re-derivation and was treated as a miss.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calmora_entitlement_cache_requests_total",
		Help: "Entitlement cache lookups by namespace and result.",
	}, []string{"namespace", "result"})

	// AccessVerdicts counts engine decisions by reason code.
	AccessVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calmora_access_verdicts_total",
		Help: "Access decisions by reason code.",
	}, []string{"reason"})

	// Revalidations counts mid-playback re-checks by outcome
	// (valid, denied, error).
	Revalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calmora_revalidations_total",
		Help: "Playback revalidation checks by outcome.",
	}, []string{"outcome"})

	// RateLimitDrops counts requests rejected by the rate limiter.
	RateLimitDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calmora_rate_limit_drops_total",
		Help: "Requests rejected by the rate limiter.",
	})
)

const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
)
