package subscription

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmora/calmora-api/internal/types"
)

func setupSubscriptionRepoTest(t *testing.T) (*PostgresSubscriptionRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPostgresSubscriptionRepo(mockPool, logger), mockPool
}

func TestPostgresSubscriptionRepo_GetByUserAndCreator(t *testing.T) {
	repo, mockPool := setupSubscriptionRepoTest(t)
	ctx := context.Background()
	userID, creatorID, subID := uuid.New(), uuid.New(), uuid.New()
	periodEnd := time.Now().Add(20 * 24 * time.Hour)

	mockPool.ExpectQuery("SELECT id, user_id, creator_id, status, current_period_end").
		WithArgs(userID, creatorID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "creator_id", "status", "current_period_end"}).
			AddRow(subID, userID, creatorID, types.SubscriptionActive, &periodEnd))

	rec, err := repo.GetByUserAndCreator(ctx, userID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, subID, rec.ID)
	assert.Equal(t, types.SubscriptionActive, rec.Status)
	require.NotNil(t, rec.CurrentPeriodEnd)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresSubscriptionRepo_GetByUserAndCreator_NotFound(t *testing.T) {
	repo, mockPool := setupSubscriptionRepoTest(t)
	ctx := context.Background()
	userID, creatorID := uuid.New(), uuid.New()

	mockPool.ExpectQuery("SELECT id, user_id, creator_id, status, current_period_end").
		WithArgs(userID, creatorID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "creator_id", "status", "current_period_end"}))

	_, err := repo.GetByUserAndCreator(ctx, userID, creatorID)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresSubscriptionRepo_ListEntitledCreators(t *testing.T) {
	repo, mockPool := setupSubscriptionRepoTest(t)
	ctx := context.Background()
	userID := uuid.New()
	creatorIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	mockPool.ExpectQuery("SELECT creator_id FROM subscriptions").
		WithArgs(userID, creatorIDs).
		WillReturnRows(pgxmock.NewRows([]string{"creator_id"}).
			AddRow(creatorIDs[0]).
			AddRow(creatorIDs[2]))

	ids, err := repo.ListEntitledCreators(ctx, userID, creatorIDs)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{creatorIDs[0], creatorIDs[2]}, ids)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresSubscriptionRepo_ListEntitledCreators_EmptyInput(t *testing.T) {
	repo, mockPool := setupSubscriptionRepoTest(t)

	// No query expectation: an empty id list must not hit the database.
	ids, err := repo.ListEntitledCreators(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	require.NoError(t, mockPool.ExpectationsWereMet())
}
