// Package config loads application configuration from the environment.
// Values are read once at startup and treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigin  string
	RateLimitPerWindow int
	RateLimitWindow    time.Duration
}

type DatabaseConfig struct {
	URL string
}

func (d DatabaseConfig) DSN() string { return d.URL }

type RedisConfig struct {
	// URL is optional; without it the cache store degrades to the
	// in-memory implementation and rate limiting to a local bucket.
	URL string
}

type AuthConfig struct {
	JWTSecret string
}

type CacheConfig struct {
	// SubscriptionStatusTTL bounds staleness for both subscription
	// entries and content metadata (the subscription-status cache
	// class).
	SubscriptionStatusTTL time.Duration

	// CreatorProfileTTL bounds the in-process creator display cache.
	CreatorProfileTTL time.Duration
}

// Load reads configuration from the environment. A .env file is loaded
// first when present (development convenience). Missing required
// variables are reported together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var missing []string

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg.Redis.URL = os.Getenv("REDIS_URL")

	cfg.Server.Port = envOrDefault("SERVER_PORT", "8080")
	cfg.Server.CORSAllowedOrigin = envOrDefault("CORS_ALLOWED_ORIGIN", "*")
	cfg.Server.RateLimitPerWindow = envIntOrDefault("RATE_LIMIT_PER_WINDOW", 120)
	cfg.Server.RateLimitWindow = envDurationOrDefault("RATE_LIMIT_WINDOW", time.Minute)

	cfg.Cache.SubscriptionStatusTTL = envDurationOrDefault("SUBSCRIPTION_STATUS_TTL", 5*time.Minute)
	cfg.Cache.CreatorProfileTTL = envDurationOrDefault("CREATOR_PROFILE_TTL", 5*time.Minute)

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
