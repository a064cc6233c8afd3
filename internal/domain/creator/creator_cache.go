package creator

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/calmora/calmora-api/internal/types"
)

var _ Repository = (*CachedRepo)(nil)

// CachedRepo wraps a Repository with an in-process go-cache. Creator
// display fields change rarely; a short TTL keeps paywall renders off
// the database without an explicit invalidation contract.
type CachedRepo struct {
	inner Repository
	c     *gocache.Cache
}

func NewCachedRepo(inner Repository, ttl time.Duration) *CachedRepo {
	return &CachedRepo{
		inner: inner,
		c:     gocache.New(ttl, 2*ttl),
	}
}

func (r *CachedRepo) GetProfile(ctx context.Context, creatorID uuid.UUID) (*types.CreatorProfile, error) {
	key := "profile:" + creatorID.String()
	if cached, found := r.c.Get(key); found {
		if profile, ok := cached.(*types.CreatorProfile); ok {
			return profile, nil
		}
	}

	profile, err := r.inner.GetProfile(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	r.c.Set(key, profile, gocache.DefaultExpiration)
	return profile, nil
}

func (r *CachedRepo) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	key := "owned:" + userID.String()
	if cached, found := r.c.Get(key); found {
		if ids, ok := cached.([]uuid.UUID); ok {
			return ids, nil
		}
	}

	ids, err := r.inner.ListOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.c.Set(key, ids, gocache.DefaultExpiration)
	return ids, nil
}
