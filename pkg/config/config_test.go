package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/calmora")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_MissingRequiredVariablesReportedTogether(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "")
	t.Setenv("SUBSCRIPTION_STATUS_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.CORSAllowedOrigin)
	assert.Equal(t, 120, cfg.Server.RateLimitPerWindow)
	assert.Equal(t, time.Minute, cfg.Server.RateLimitWindow)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SubscriptionStatusTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.CreatorProfileTTL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "60")
	t.Setenv("SUBSCRIPTION_STATUS_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 60, cfg.Server.RateLimitPerWindow)
	assert.Equal(t, 90*time.Second, cfg.Cache.SubscriptionStatusTTL)
}

func TestLoad_MalformedOptionalValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("RATE_LIMIT_PER_WINDOW", "lots")
	t.Setenv("SUBSCRIPTION_STATUS_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Server.RateLimitPerWindow)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SubscriptionStatusTTL)
}
