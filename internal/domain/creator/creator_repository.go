package creator

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

var _ Repository = (*PostgresCreatorRepo)(nil)

// Repository defines creator-profile reads for the entitlement core.
type Repository interface {
	// GetProfile returns a creator profile by id, or types.ErrNotFound.
	GetProfile(ctx context.Context, creatorID uuid.UUID) (*types.CreatorProfile, error)

	// ListOwnedBy returns the ids of creator profiles owned by a user.
	ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type PostgresCreatorRepo struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewPostgresCreatorRepo(pgpool db.Querier, logger *slog.Logger) *PostgresCreatorRepo {
	return &PostgresCreatorRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresCreatorRepo) GetProfile(ctx context.Context, creatorID uuid.UUID) (*types.CreatorProfile, error) {
	var profile types.CreatorProfile
	err := r.pgpool.QueryRow(ctx, `
		SELECT id, owner_user_id, handle, display_name, subscription_price_cents, trial_enabled
		FROM creators WHERE id = $1`,
		creatorID).Scan(
		&profile.ID,
		&profile.OwnerUserID,
		&profile.Handle,
		&profile.DisplayName,
		&profile.SubscriptionPriceCents,
		&profile.TrialEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query creator profile: %w", err)
	}
	return &profile, nil
}

func (r *PostgresCreatorRepo) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pgpool.Query(ctx,
		"SELECT id FROM creators WHERE owner_user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned creators: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owned creator id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read owned creator rows: %w", err)
	}
	return ids, nil
}
