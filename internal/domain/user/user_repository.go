package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calmora/calmora-api/pkg/db"
)

var _ Repository = (*PostgresUserRepo)(nil)

// Repository is the minimal user lookup the verdict layer needs: a
// bearer token can outlive its account, and such requests must answer
// with user_not_found rather than a generic denial.
type Repository interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewPostgresUserRepo(pgpool db.Querier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresUserRepo) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND is_active = TRUE)",
		userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
