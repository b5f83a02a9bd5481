package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/ratelimit"
	"storefront/internal/storage"
)

func TestSeedBootstrapKey(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStorage(storage.Config{})
	require.NoError(t, err)

	cfg := models.NewDefaultConfig()
	require.NoError(t, seedBootstrapKey(ctx, store, cfg), "empty key is a no-op")
	keys, err := store.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	cfg.Security.BootstrapKey = "sfk_bootstrap-secret"
	require.NoError(t, seedBootstrapKey(ctx, store, cfg))
	require.NoError(t, seedBootstrapKey(ctx, store, cfg), "seeding twice is idempotent")

	keys, err = store.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "bootstrap", keys[0].Name)
	assert.True(t, keys[0].HasPermission(models.PermissionAdmin))
}

func TestNewLimiter_Memory(t *testing.T) {
	cfg := models.NewDefaultConfig().Security.RateLimit

	limiter := newLimiter(cfg)
	defer limiter.Close()

	_, ok := limiter.(*ratelimit.MemoryLimiter)
	assert.True(t, ok)
}

func TestNewLimiter_RedisFailsOpen(t *testing.T) {
	cfg := models.NewDefaultConfig().Security.RateLimit
	cfg.Backend = models.RateLimitBackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	limiter := newLimiter(cfg)
	defer limiter.Close()

	res := limiter.Check(context.Background(), "test", ratelimit.Options{MaxRequests: 1, Window: time.Minute})
	assert.True(t, res.Success)
}
