package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calmora/calmora-api/internal/cache"
	"github.com/calmora/calmora-api/internal/domain/access"
	accesshandler "github.com/calmora/calmora-api/internal/domain/access/handler"
	"github.com/calmora/calmora-api/internal/domain/content"
	"github.com/calmora/calmora-api/internal/domain/creator"
	"github.com/calmora/calmora-api/internal/domain/subscription"
	"github.com/calmora/calmora-api/internal/domain/user"
	"github.com/calmora/calmora-api/pkg/config"
	"github.com/calmora/calmora-api/pkg/db"
)

// Dependencies holds all application dependencies.
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	CacheStore   cache.Store
	RedisStore   *cache.RedisStore
	redisClient  *redis.Client

	// Repositories
	ContentRepo      content.Repository
	CreatorRepo      creator.Repository
	SubscriptionRepo subscription.Repository
	UserRepo         user.Repository

	// Services
	ContentSvc      content.Service
	SubscriptionSvc subscription.Service
	AccessSvc       access.Service

	// Handlers
	AccessHandler *accesshandler.AccessHandler
}

// InitDependencies initializes all application dependencies.
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initCache()

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database
	d.Logger.Info("database connected")
	return nil
}

// initCache wires the shared cache store. Without a configured redis
// backend the store degrades to the in-memory implementation; the
// engine's fail-open-on-cache contract means nothing else changes.
func (d *Dependencies) initCache() {
	if d.Config.Redis.URL == "" {
		d.CacheStore = cache.NewMemoryStore(d.Config.Cache.SubscriptionStatusTTL, 2*d.Config.Cache.SubscriptionStatusTTL)
		d.Logger.Warn("no redis configured, using in-memory cache store")
		return
	}

	opts, err := redis.ParseURL(d.Config.Redis.URL)
	if err != nil {
		d.CacheStore = cache.NewMemoryStore(d.Config.Cache.SubscriptionStatusTTL, 2*d.Config.Cache.SubscriptionStatusTTL)
		d.Logger.Error("invalid redis url, using in-memory cache store", slog.Any("error", err))
		return
	}

	d.redisClient = redis.NewClient(opts)
	d.RedisStore = cache.NewRedisStore(d.redisClient, d.Logger)
	d.CacheStore = d.RedisStore
	d.Logger.Info("redis cache store initialized")
}

func (d *Dependencies) initRepositories() error {
	d.ContentRepo = content.NewPostgresContentRepo(d.DB.Pool, d.Logger)
	d.SubscriptionRepo = subscription.NewPostgresSubscriptionRepo(d.DB.Pool, d.Logger)
	d.UserRepo = user.NewPostgresUserRepo(d.DB.Pool, d.Logger)

	creatorRepo := creator.NewPostgresCreatorRepo(d.DB.Pool, d.Logger)
	d.CreatorRepo = creator.NewCachedRepo(creatorRepo, d.Config.Cache.CreatorProfileTTL)

	d.Logger.Info("repositories initialized")
	return nil
}

func (d *Dependencies) initServices() error {
	ttl := d.Config.Cache.SubscriptionStatusTTL

	d.ContentSvc = content.NewService(d.ContentRepo, d.CacheStore, ttl, d.Logger)
	d.SubscriptionSvc = subscription.NewService(d.SubscriptionRepo, d.CreatorRepo, d.CacheStore, ttl, d.Logger)
	d.AccessSvc = access.NewService(d.ContentSvc, d.SubscriptionSvc, d.SubscriptionRepo, d.CreatorRepo, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

func (d *Dependencies) initHandlers() error {
	d.AccessHandler = accesshandler.NewAccessHandler(d.AccessSvc, d.UserRepo, d.Logger)
	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources.
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.redisClient != nil {
		_ = d.redisClient.Close()
	}
	d.Logger.Info("cleanup completed")
}
