package content

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

var _ Repository = (*PostgresContentRepo)(nil)

// Repository defines the durable-store reads the metadata lookup needs.
type Repository interface {
	// GetMetadata fetches only the access-relevant fields of a content
	// row. Returns types.ErrNotFound when no such content exists.
	GetMetadata(ctx context.Context, contentID uuid.UUID) (*types.ContentMetadata, error)

	// ListMetadata fetches metadata for a batch of content ids in one
	// round trip. Missing ids are simply absent from the result.
	ListMetadata(ctx context.Context, contentIDs []uuid.UUID) ([]*types.ContentMetadata, error)
}

type PostgresContentRepo struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewPostgresContentRepo(pgpool db.Querier, logger *slog.Logger) *PostgresContentRepo {
	return &PostgresContentRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresContentRepo) GetMetadata(ctx context.Context, contentID uuid.UUID) (*types.ContentMetadata, error) {
	var meta types.ContentMetadata
	err := r.pgpool.QueryRow(ctx,
		"SELECT id, is_free, creator_id, status FROM content WHERE id = $1",
		contentID).Scan(&meta.ID, &meta.IsFree, &meta.CreatorID, &meta.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query content metadata: %w", err)
	}
	return &meta, nil
}

func (r *PostgresContentRepo) ListMetadata(ctx context.Context, contentIDs []uuid.UUID) ([]*types.ContentMetadata, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pgpool.Query(ctx,
		"SELECT id, is_free, creator_id, status FROM content WHERE id = ANY($1)",
		contentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query content metadata batch: %w", err)
	}
	defer rows.Close()

	var metas []*types.ContentMetadata
	for rows.Next() {
		var meta types.ContentMetadata
		if err := rows.Scan(&meta.ID, &meta.IsFree, &meta.CreatorID, &meta.Status); err != nil {
			return nil, fmt.Errorf("failed to scan content metadata row: %w", err)
		}
		metas = append(metas, &meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read content metadata rows: %w", err)
	}
	return metas, nil
}
