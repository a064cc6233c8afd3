// Package access implements the entitlement decision engine: the single
// entry point content-serving endpoints use to decide whether playback
// is permitted for a (user, content) pair.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/calmora/calmora-api/internal/domain/content"
	"github.com/calmora/calmora-api/internal/domain/creator"
	"github.com/calmora/calmora-api/internal/domain/subscription"
	"github.com/calmora/calmora-api/internal/types"
	"github.com/calmora/calmora-api/pkg/observability"
)

var _ Service = (*ServiceImpl)(nil)

// CheckAccessParams identifies the pair to decide on. UserID is nil for
// unauthenticated requests. Content may carry metadata the caller
// already holds, skipping the lookup.
type CheckAccessParams struct {
	ContentID uuid.UUID
	UserID    *uuid.UUID
	Content   *types.ContentMetadata
}

// Service is the access decision engine plus its batch and revalidation
// variants.
type Service interface {
	// CheckContentAccess produces the verdict for one content item.
	CheckContentAccess(ctx context.Context, params CheckAccessParams) (*types.AccessVerdict, error)

	// CheckBatchContentAccess answers has-access booleans for a set of
	// content ids with a single subscription query. It is a performance
	// optimization for feed rendering and agrees item-by-item with
	// CheckContentAccess.
	CheckBatchContentAccess(ctx context.Context, userID *uuid.UUID, contentIDs []uuid.UUID) (map[uuid.UUID]bool, error)

	// RevalidateAccess is the mid-playback re-check. It bypasses the
	// subscription cache and fails closed: whenever err is non-nil the
	// returned result is non-nil with Valid=false.
	RevalidateAccess(ctx context.Context, userID, contentID uuid.UUID) (*types.RevalidationResult, error)
}

type ServiceImpl struct {
	logger      *slog.Logger
	contentSvc  content.Service
	subSvc      subscription.Service
	subRepo     subscription.Repository
	creatorRepo creator.Repository

	now func() time.Time
}

func NewService(
	contentSvc content.Service,
	subSvc subscription.Service,
	subRepo subscription.Repository,
	creatorRepo creator.Repository,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		contentSvc:  contentSvc,
		subSvc:      subSvc,
		subRepo:     subRepo,
		creatorRepo: creatorRepo,
		now:         time.Now,
	}
}

func (s *ServiceImpl) CheckContentAccess(ctx context.Context, params CheckAccessParams) (*types.AccessVerdict, error) {
	ctx, span := otel.Tracer("accessService").Start(ctx, "CheckContentAccess", trace.WithAttributes(
		attribute.String("content.id", params.ContentID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CheckContentAccess"),
		slog.String("contentID", params.ContentID.String()))

	meta := params.Content
	if meta == nil {
		var err error
		meta, err = s.contentSvc.GetContentMetadata(ctx, params.ContentID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return s.finish(span, &types.AccessVerdict{
					HasAccess: false,
					Reason:    types.ReasonContentNotFound,
				}), nil
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to resolve content metadata")
			return nil, fmt.Errorf("error resolving content metadata: %w", err)
		}
	}

	// Free content is served before authentication is even considered.
	if meta.IsFree {
		return s.finish(span, &types.AccessVerdict{
			HasAccess:     true,
			Reason:        types.ReasonFreeContent,
			IsFreeContent: true,
		}), nil
	}

	if params.UserID == nil {
		verdict := &types.AccessVerdict{
			HasAccess: false,
			Reason:    types.ReasonUnauthenticated,
		}
		s.attachPaywall(ctx, verdict, meta.CreatorID)
		return s.finish(span, verdict), nil
	}

	// Creators always see their own paid content without a
	// self-subscription.
	profile, err := s.creatorRepo.GetProfile(ctx, meta.CreatorID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve content creator")
		return nil, fmt.Errorf("error resolving content creator: %w", err)
	}
	if profile != nil && profile.OwnerUserID == *params.UserID {
		return s.finish(span, &types.AccessVerdict{
			HasAccess: true,
			Reason:    types.ReasonCreatorOwnContent,
		}), nil
	}

	verdict, err := s.subSvc.CheckSubscriptionStatus(ctx, *params.UserID, meta.CreatorID)
	if err != nil {
		l.ErrorContext(ctx, "subscription status check failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscription status check failed")
		return nil, err
	}
	verdict.IsFreeContent = false
	return s.finish(span, verdict), nil
}

func (s *ServiceImpl) CheckBatchContentAccess(ctx context.Context, userID *uuid.UUID, contentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	ctx, span := otel.Tracer("accessService").Start(ctx, "CheckBatchContentAccess", trace.WithAttributes(
		attribute.Int("content.count", len(contentIDs)),
	))
	defer span.End()

	result := make(map[uuid.UUID]bool, len(contentIDs))
	for _, id := range contentIDs {
		result[id] = false
	}

	metas, err := s.contentSvc.ListContentMetadata(ctx, contentIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve content metadata batch")
		return nil, err
	}

	// Group paid content by creator so a single subscription query
	// covers the whole page of results.
	paidByCreator := make(map[uuid.UUID][]uuid.UUID)
	for _, meta := range metas {
		if meta.IsFree {
			result[meta.ID] = true
			continue
		}
		paidByCreator[meta.CreatorID] = append(paidByCreator[meta.CreatorID], meta.ID)
	}

	if userID == nil || len(paidByCreator) == 0 {
		return result, nil
	}

	owned, err := s.creatorRepo.ListOwnedBy(ctx, *userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve owned creators")
		return nil, fmt.Errorf("error resolving owned creators: %w", err)
	}
	ownedSet := make(map[uuid.UUID]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id] = struct{}{}
	}

	creatorIDs := make([]uuid.UUID, 0, len(paidByCreator))
	for creatorID := range paidByCreator {
		if _, ok := ownedSet[creatorID]; ok {
			for _, contentID := range paidByCreator[creatorID] {
				result[contentID] = true
			}
			continue
		}
		creatorIDs = append(creatorIDs, creatorID)
	}

	if len(creatorIDs) == 0 {
		return result, nil
	}

	entitled, err := s.subRepo.ListEntitledCreators(ctx, *userID, creatorIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve entitled creators")
		return nil, fmt.Errorf("error resolving entitled creators: %w", err)
	}
	for _, creatorID := range entitled {
		for _, contentID := range paidByCreator[creatorID] {
			result[contentID] = true
		}
	}

	return result, nil
}

// attachPaywall adds the creator display projection to a denial verdict.
// A missing creator row is logged, not fatal.
func (s *ServiceImpl) attachPaywall(ctx context.Context, verdict *types.AccessVerdict, creatorID uuid.UUID) {
	profile, err := s.creatorRepo.GetProfile(ctx, creatorID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to fetch creator paywall info",
				slog.String("creatorID", creatorID.String()), slog.Any("error", err))
		}
		return
	}
	verdict.Creator = profile.PaywallInfo()
}

func (s *ServiceImpl) finish(span trace.Span, verdict *types.AccessVerdict) *types.AccessVerdict {
	observability.AccessVerdicts.WithLabelValues(string(verdict.Reason)).Inc()
	span.SetAttributes(
		attribute.Bool("access.granted", verdict.HasAccess),
		attribute.String("access.reason", string(verdict.Reason)),
	)
	span.SetStatus(codes.Ok, "verdict produced")
	return verdict
}
