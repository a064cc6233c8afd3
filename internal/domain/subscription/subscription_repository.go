package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calmora/calmora-api/internal/types"
	"github.com/calmora/calmora-api/pkg/db"
)

var _ Repository = (*PostgresSubscriptionRepo)(nil)

// Repository defines the subscription reads the entitlement core needs.
// The billing webhook pipeline owns all writes to these rows.
type Repository interface {
	// GetByUserAndCreator returns the one subscription for a
	// (user, creator) pair, or types.ErrNotFound when none exists.
	GetByUserAndCreator(ctx context.Context, userID, creatorID uuid.UUID) (*types.SubscriptionRecord, error)

	// ListEntitledCreators returns, out of the given creator ids, the
	// ones the user currently holds an entitling subscription to:
	// active or trialing, or canceled with the paid period still open.
	ListEntitledCreators(ctx context.Context, userID uuid.UUID, creatorIDs []uuid.UUID) ([]uuid.UUID, error)
}

type PostgresSubscriptionRepo struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewPostgresSubscriptionRepo(pgpool db.Querier, logger *slog.Logger) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresSubscriptionRepo) GetByUserAndCreator(ctx context.Context, userID, creatorID uuid.UUID) (*types.SubscriptionRecord, error) {
	var rec types.SubscriptionRecord
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, user_id, creator_id, status, current_period_end
		FROM subscriptions WHERE user_id = $1 AND creator_id = $2`,
		userID, creatorID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CreatorID,
		&rec.Status,
		&rec.CurrentPeriodEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	return &rec, nil
}

func (r *PostgresSubscriptionRepo) ListEntitledCreators(ctx context.Context, userID uuid.UUID, creatorIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(creatorIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pgpool.Query(ctx, `
		SELECT creator_id FROM subscriptions
		WHERE user_id = $1 AND creator_id = ANY($2)
		  AND (status IN ('active', 'trialing')
		       OR (status = 'canceled' AND current_period_end > now()))`,
		userID, creatorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query entitled creators: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entitled creator id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entitled creator rows: %w", err)
	}
	return ids, nil
}
