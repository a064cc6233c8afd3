package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the read-only subset of pgxpool.Pool the repositories use.
// pgxmock pools satisfy it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
