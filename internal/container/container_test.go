package container

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/config"
	"auth-gateway/internal/identity/memstore"
	"auth-gateway/internal/repository"
	"auth-gateway/pkg/logger"
	"auth-gateway/pkg/redis"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:       "test",
		IdentityBackend:   config.IdentityBackendMemory,
		ProfileStore:      config.ProfileStoreNone,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		UpstreamTimeout:   time.Second,
	}
}

func TestNewWithComponents_WithoutRedis(t *testing.T) {
	c := NewWithComponents(testConfig(), logger.NewNop(), Components{Store: memstore.New("secret")})

	assert.NotNil(t, c.GetAuthService())
	assert.NotNil(t, c.GetMetrics())
	assert.Nil(t, c.GetRateLimiter())
	assert.Nil(t, c.RedisClient)
	assert.Equal(t, "none", c.Profiles.Name())
}

func TestNewWithComponents_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientFromRedis(rdb, "test", nil)

	c := NewWithComponents(testConfig(), logger.NewNop(), Components{
		Store:   memstore.New("secret"),
		Redis:   client,
		Closers: []func() error{client.Close},
	})
	require.NotNil(t, c.GetRateLimiter())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		d, err := c.GetRateLimiter().Allow(ctx, "login", "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := c.GetRateLimiter().Allow(ctx, "login", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	checks, err := c.CheckConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"identity": "ok", "profiles:none": "ok", "redis": "ok"}, checks)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestCheckConnections_ReportsFailure(t *testing.T) {
	store := memstore.New("secret")
	store.Fail["Ping"] = errors.New("identity down")

	c := NewWithComponents(testConfig(), logger.NewNop(), Components{Store: store})

	checks, err := c.CheckConnections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity")
	assert.Equal(t, "identity down", checks["identity"])
	assert.Equal(t, "ok", checks["profiles:none"])
}

type markingProfiles struct {
	repository.ProfileRepository
	pings, marks int
}

func (m *markingProfiles) Ping(ctx context.Context) error {
	m.pings++
	return nil
}

func (m *markingProfiles) MarkStartup(ctx context.Context) error {
	m.marks++
	return nil
}

func (m *markingProfiles) Name() string { return "marking" }

func TestHealth_DoesNotWriteStartupMarker(t *testing.T) {
	profiles := &markingProfiles{}
	c := NewWithComponents(testConfig(), logger.NewNop(), Components{
		Store:    memstore.New("secret"),
		Profiles: profiles,
	})

	checks, err := c.CheckConnections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", checks["profiles:marking"])
	assert.Equal(t, 1, profiles.marks)

	for i := 0; i < 3; i++ {
		checks, err = c.Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"identity": "ok", "profiles:marking": "ok"}, checks)
	}
	assert.Equal(t, 1, profiles.marks)
	assert.Equal(t, 3, profiles.pings)
}

func TestNew_MemoryBackend(t *testing.T) {
	cfg := testConfig()
	cfg.TokenSigningSecret = "secret"
	cfg.GoogleClientID = "client-id"

	c, err := New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.GetAuthService())
	assert.Nil(t, c.RedisClient)
	assert.Nil(t, c.DB)
	assert.Same(t, cfg, c.GetConfig())
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.IdentityBackend = "ldap"

	_, err := New(context.Background(), cfg, logger.NewNop())
	assert.Error(t, err)
}
