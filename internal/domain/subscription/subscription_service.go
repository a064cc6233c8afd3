package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/calmora/calmora-api/internal/cache"
	"github.com/calmora/calmora-api/internal/domain/creator"
	"github.com/calmora/calmora-api/internal/types"
	"github.com/calmora/calmora-api/pkg/observability"
)

var _ Service = (*ServiceImpl)(nil)

// Service resolves whether a user holds a currently-valid entitlement to
// a creator's content, cache-first with a short staleness window.
type Service interface {
	// CheckSubscriptionStatus returns a verdict for (user, creator).
	// Denial verdicts carry the creator's paywall projection.
	CheckSubscriptionStatus(ctx context.Context, userID, creatorID uuid.UUID) (*types.AccessVerdict, error)

	// InvalidateAccessCache must be called by the billing webhook
	// pipeline whenever a subscription changes state, before its
	// response returns.
	InvalidateAccessCache(ctx context.Context, userID, creatorID uuid.UUID)
}

type ServiceImpl struct {
	logger      *slog.Logger
	repo        Repository
	creatorRepo creator.Repository
	store       cache.Store
	ttl         time.Duration

	// now is swappable so tests can move the clock across a grace
	// period without re-seeding the cache.
	now func() time.Time
}

func NewService(repo Repository, creatorRepo creator.Repository, store cache.Store, ttl time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		creatorRepo: creatorRepo,
		store:       store,
		ttl:         ttl,
		now:         time.Now,
	}
}

func accessCacheKey(userID, creatorID uuid.UUID) string {
	return fmt.Sprintf("sub:access:%s:%s", userID, creatorID)
}

func (s *ServiceImpl) CheckSubscriptionStatus(ctx context.Context, userID, creatorID uuid.UUID) (*types.AccessVerdict, error) {
	ctx, span := otel.Tracer("subscriptionService").Start(ctx, "CheckSubscriptionStatus", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("creator.id", creatorID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CheckSubscriptionStatus"),
		slog.String("userID", userID.String()), slog.String("creatorID", creatorID.String()))

	key := accessCacheKey(userID, creatorID)
	if raw, found := s.store.Get(ctx, key); found {
		var entry types.CachedSubscriptionEntry
		if err := json.Unmarshal(raw, &entry); err == nil && entry.Version == types.CachedSubscriptionEntryVersion {
			now := s.now()

			// A cached grant for a canceled subscription is only as good
			// as the wall clock: the grace period may have elapsed since
			// the entry was written. Re-derive on every hit.
			if entry.IsActive && entry.Status == types.SubscriptionCanceled &&
				(entry.ExpiresAt == nil || !entry.ExpiresAt.After(now)) {
				observability.CacheRequests.WithLabelValues("subscription", observability.CacheStale).Inc()
				l.DebugContext(ctx, "cached grant expired at read time")
				return s.denyVerdict(ctx, types.ReasonForStatus(&entry.Status, entry.ExpiresAt, now), creatorID)
			}

			observability.CacheRequests.WithLabelValues("subscription", observability.CacheHit).Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			if entry.IsActive {
				return grantVerdictFromEntry(&entry), nil
			}
			return s.denyVerdict(ctx, types.ReasonForStatus(&entry.Status, entry.ExpiresAt, now), creatorID)
		}
		observability.CacheRequests.WithLabelValues("subscription", observability.CacheStale).Inc()
		l.WarnContext(ctx, "discarding undecodable subscription cache entry", slog.String("key", key))
	} else {
		observability.CacheRequests.WithLabelValues("subscription", observability.CacheMiss).Inc()
	}

	rec, err := s.repo.GetByUserAndCreator(ctx, userID, creatorID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch subscription")
		return nil, fmt.Errorf("error fetching subscription: %w", err)
	}

	now := s.now()
	entry := types.CachedSubscriptionEntry{
		Version:  types.CachedSubscriptionEntryVersion,
		CachedAt: now,
	}
	if rec != nil {
		entry.IsActive = rec.IsEntitling(now)
		entry.Status = rec.Status
		entry.SubscriptionID = rec.ID
		entry.ExpiresAt = rec.CurrentPeriodEnd
	}

	// Negative results are cached too: non-subscribers are the common
	// case on public content and must not hammer the database.
	if raw, err := json.Marshal(&entry); err == nil {
		s.store.Set(ctx, key, raw, s.ttl)
	}

	if rec == nil {
		return s.denyVerdict(ctx, types.ReasonNoSubscription, creatorID)
	}
	if entry.IsActive {
		return grantVerdict(rec), nil
	}
	return s.denyVerdict(ctx, types.ReasonForStatus(&rec.Status, rec.CurrentPeriodEnd, now), creatorID)
}

// grantVerdictFromEntry rebuilds a grant from a cached entry.
func grantVerdictFromEntry(entry *types.CachedSubscriptionEntry) *types.AccessVerdict {
	reason := types.ReasonActiveSubscription
	if entry.Status == types.SubscriptionTrialing {
		reason = types.ReasonTrialing
	}
	return &types.AccessVerdict{
		HasAccess: true,
		Reason:    reason,
		Subscription: &types.SubscriptionGrant{
			ID:        entry.SubscriptionID,
			Status:    entry.Status,
			ExpiresAt: entry.ExpiresAt,
		},
	}
}

// grantVerdict builds the grant for an entitling record. A canceled
// subscription inside its grace period grants with active_subscription,
// matching the production behavior the players depend on.
func grantVerdict(rec *types.SubscriptionRecord) *types.AccessVerdict {
	reason := types.ReasonActiveSubscription
	if rec.Status == types.SubscriptionTrialing {
		reason = types.ReasonTrialing
	}
	return &types.AccessVerdict{
		HasAccess: true,
		Reason:    reason,
		Subscription: &types.SubscriptionGrant{
			ID:        rec.ID,
			Status:    rec.Status,
			ExpiresAt: rec.CurrentPeriodEnd,
		},
	}
}

// denyVerdict attaches the creator paywall projection so the caller can
// render an upsell. A missing creator row downgrades to a verdict
// without display data rather than an error.
func (s *ServiceImpl) denyVerdict(ctx context.Context, reason types.AccessReason, creatorID uuid.UUID) (*types.AccessVerdict, error) {
	verdict := &types.AccessVerdict{
		HasAccess: false,
		Reason:    reason,
	}

	profile, err := s.creatorRepo.GetProfile(ctx, creatorID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("error fetching creator paywall info: %w", err)
		}
		s.logger.WarnContext(ctx, "creator profile missing for denial verdict",
			slog.String("creatorID", creatorID.String()))
		return verdict, nil
	}

	verdict.Creator = profile.PaywallInfo()
	return verdict, nil
}

func (s *ServiceImpl) InvalidateAccessCache(ctx context.Context, userID, creatorID uuid.UUID) {
	ctx, span := otel.Tracer("subscriptionService").Start(ctx, "InvalidateAccessCache", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("creator.id", creatorID.String()),
	))
	defer span.End()

	s.store.Delete(ctx, accessCacheKey(userID, creatorID))
	s.logger.DebugContext(ctx, "subscription access cache invalidated",
		slog.String("userID", userID.String()), slog.String("creatorID", creatorID.String()))
}
