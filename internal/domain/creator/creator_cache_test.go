package creator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/calmora/calmora-api/internal/types"
)

type MockCreatorRepo struct {
	mock.Mock
}

func (m *MockCreatorRepo) GetProfile(ctx context.Context, creatorID uuid.UUID) (*types.CreatorProfile, error) {
	args := m.Called(ctx, creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CreatorProfile), args.Error(1)
}

func (m *MockCreatorRepo) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func TestCachedRepo_GetProfile_CachesResult(t *testing.T) {
	inner := new(MockCreatorRepo)
	repo := NewCachedRepo(inner, time.Minute)
	ctx := context.Background()
	creatorID := uuid.New()

	profile := &types.CreatorProfile{ID: creatorID, OwnerUserID: uuid.New(), Handle: "quietpath"}
	inner.On("GetProfile", mock.Anything, creatorID).Return(profile, nil).Once()

	first, err := repo.GetProfile(ctx, creatorID)
	require.NoError(t, err)
	second, err := repo.GetProfile(ctx, creatorID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	inner.AssertExpectations(t)
}

func TestCachedRepo_GetProfile_ErrorsAreNotCached(t *testing.T) {
	inner := new(MockCreatorRepo)
	repo := NewCachedRepo(inner, time.Minute)
	ctx := context.Background()
	creatorID := uuid.New()

	inner.On("GetProfile", mock.Anything, creatorID).Return(nil, types.ErrNotFound).Twice()

	_, err := repo.GetProfile(ctx, creatorID)
	require.Error(t, err)
	_, err = repo.GetProfile(ctx, creatorID)
	require.Error(t, err)
	inner.AssertExpectations(t)
}

func TestCachedRepo_ListOwnedBy_CachesResult(t *testing.T) {
	inner := new(MockCreatorRepo)
	repo := NewCachedRepo(inner, time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	owned := []uuid.UUID{uuid.New()}
	inner.On("ListOwnedBy", mock.Anything, userID).Return(owned, nil).Once()

	first, err := repo.ListOwnedBy(ctx, userID)
	require.NoError(t, err)
	second, err := repo.ListOwnedBy(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	inner.AssertExpectations(t)
}
