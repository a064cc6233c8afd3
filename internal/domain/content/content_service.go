package content

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
	"github.com/calmora/calmora-api/internal/types"
	"github.com/calmora/calmora-api/pkg/observability"
)

var _ Service = (*ServiceImpl)(nil)

// Service resolves content ids to access-relevant metadata, cache-first.
type Service interface {
	// GetContentMetadata returns the metadata for a content id, or
	// types.ErrNotFound when no such content exists.
	GetContentMetadata(ctx context.Context, contentID uuid.UUID) (*types.ContentMetadata, error)

	// ListContentMetadata fetches metadata for a batch of ids straight
	// from the durable store (feed rendering path; no per-id caching).
	ListContentMetadata(ctx context.Context, contentIDs []uuid.UUID) ([]*types.ContentMetadata, error)

	// InvalidateContentCache must be called by any mutation path that
	// changes is_free, creator_id or status, before its response returns.
	InvalidateContentCache(ctx context.Context, contentID uuid.UUID)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	store  cache.Store
	ttl    time.Duration
}

func NewService(repo Repository, store cache.Store, ttl time.Duration, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		store:  store,
		ttl:    ttl,
	}
}

func cacheKey(contentID uuid.UUID) string {
	return "content:meta:" + contentID.String()
}

func (s *ServiceImpl) GetContentMetadata(ctx context.Context, contentID uuid.UUID) (*types.ContentMetadata, error) {
	ctx, span := otel.Tracer("contentService").Start(ctx, "GetContentMetadata", trace.WithAttributes(
		attribute.String("content.id", contentID.String()),
	))
	defer span.End()

	key := cacheKey(contentID)
	if raw, found := s.store.Get(ctx, key); found {
		var meta types.ContentMetadata
		if err := json.Unmarshal(raw, &meta); err == nil {
			observability.CacheRequests.WithLabelValues("content", observability.CacheHit).Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &meta, nil
		}
		// Undecodable payload is a miss, not a crash.
		observability.CacheRequests.WithLabelValues("content", observability.CacheStale).Inc()
		s.logger.WarnContext(ctx, "discarding undecodable content cache entry", slog.String("key", key))
	} else {
		observability.CacheRequests.WithLabelValues("content", observability.CacheMiss).Inc()
	}

	meta, err := s.repo.GetMetadata(ctx, contentID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Ok, "content not found")
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch content metadata")
		return nil, fmt.Errorf("error fetching content metadata: %w", err)
	}

	if raw, err := json.Marshal(meta); err == nil {
		s.store.Set(ctx, key, raw, s.ttl)
	}
	return meta, nil
}

func (s *ServiceImpl) ListContentMetadata(ctx context.Context, contentIDs []uuid.UUID) ([]*types.ContentMetadata, error) {
	ctx, span := otel.Tracer("contentService").Start(ctx, "ListContentMetadata", trace.WithAttributes(
		attribute.Int("content.count", len(contentIDs)),
	))
	defer span.End()

	metas, err := s.repo.ListMetadata(ctx, contentIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch content metadata batch")
		return nil, fmt.Errorf("error fetching content metadata batch: %w", err)
	}
	return metas, nil
}

func (s *ServiceImpl) InvalidateContentCache(ctx context.Context, contentID uuid.UUID) {
	ctx, span := otel.Tracer("contentService").Start(ctx, "InvalidateContentCache", trace.WithAttributes(
		attribute.String("content.id", contentID.String()),
	))
	defer span.End()

	s.store.Delete(ctx, cacheKey(contentID))
	s.logger.DebugContext(ctx, "content cache invalidated", slog.String("contentID", contentID.String()))
}
