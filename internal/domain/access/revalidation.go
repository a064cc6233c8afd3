package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/calmora/calmora-api/internal/types"
	"github.com/calmora/calmora-api/pkg/observability"
)

const (
	// freeContentWindowSeconds is the nominal expiry reported for free
	// content; the player treats it as advisory.
	freeContentWindowSeconds = 3600

	// defaultPeriodHorizonSeconds stands in when a subscription record
	// has no current_period_end. A fallback, not a guarantee.
	defaultPeriodHorizonSeconds = 30 * 24 * 3600

	// maxCheckIntervalSeconds caps how far out the player may schedule
	// its next revalidation poll.
	maxCheckIntervalSeconds = 300
)

// RevalidateAccess re-checks entitlement mid-playback. It deliberately
// bypasses the subscription cache: a subscription canceled moments ago
// must lose access within one polling interval, not one cache TTL.
//
// The result is always non-nil. On any error it reports Valid=false so
// callers that consult only the result still fail closed; playback must
// never continue on an indeterminate answer.
func (s *ServiceImpl) RevalidateAccess(ctx context.Context, userID, contentID uuid.UUID) (*types.RevalidationResult, error) {
	ctx, span := otel.Tracer("accessService").Start(ctx, "RevalidateAccess", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("content.id", contentID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RevalidateAccess"),
		slog.String("userID", userID.String()), slog.String("contentID", contentID.String()))

	denied := func(reason types.AccessReason) *types.RevalidationResult {
		observability.Revalidations.WithLabelValues("denied").Inc()
		span.SetStatus(codes.Ok, "revalidation denied")
		return &types.RevalidationResult{Valid: false, Reason: reason}
	}
	failedClosed := func(err error) (*types.RevalidationResult, error) {
		observability.Revalidations.WithLabelValues("error").Inc()
		l.ErrorContext(ctx, "revalidation failed, denying access", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "revalidation failed closed")
		return &types.RevalidationResult{Valid: false}, err
	}
	valid := func(reason types.AccessReason, expiresIn int64) *types.RevalidationResult {
		observability.Revalidations.WithLabelValues("valid").Inc()
		span.SetStatus(codes.Ok, "revalidation passed")
		nextCheckIn := int64(maxCheckIntervalSeconds)
		if expiresIn < nextCheckIn {
			nextCheckIn = expiresIn
		}
		return &types.RevalidationResult{
			Valid:       true,
			Reason:      reason,
			ExpiresIn:   expiresIn,
			NextCheckIn: nextCheckIn,
		}
	}

	meta, err := s.contentSvc.GetContentMetadata(ctx, contentID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return denied(types.ReasonContentNotFound), nil
		}
		return failedClosed(fmt.Errorf("error resolving content metadata: %w", err))
	}

	if meta.IsFree {
		return valid(types.ReasonFreeContent, freeContentWindowSeconds), nil
	}

	profile, err := s.creatorRepo.GetProfile(ctx, meta.CreatorID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return failedClosed(fmt.Errorf("error resolving content creator: %w", err))
	}
	if profile != nil && profile.OwnerUserID == userID {
		return valid(types.ReasonCreatorOwnContent, freeContentWindowSeconds), nil
	}

	// Ground truth: straight to the durable store.
	rec, err := s.subRepo.GetByUserAndCreator(ctx, userID, meta.CreatorID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return denied(types.ReasonNoSubscription), nil
		}
		return failedClosed(fmt.Errorf("error fetching subscription: %w", err))
	}

	now := s.now()
	if !rec.IsEntitling(now) {
		return denied(types.ReasonForStatus(&rec.Status, rec.CurrentPeriodEnd, now)), nil
	}

	expiresIn := int64(defaultPeriodHorizonSeconds)
	if rec.CurrentPeriodEnd != nil {
		expiresIn = int64(rec.CurrentPeriodEnd.Sub(now).Seconds())
	}

	reason := types.ReasonActiveSubscription
	if rec.Status == types.SubscriptionTrialing {
		reason = types.ReasonTrialing
	}
	return valid(reason, expiresIn), nil
}
