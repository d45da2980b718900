package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis() *domain.StockAnalysis {
	return &domain.StockAnalysis{
		Alerts: []domain.Alert{
			{ID: "alert-p1", Recommendation: domain.Recommendation{ProductID: "p1", Priority: 1}},
			{ID: "alert-p2", Recommendation: domain.Recommendation{ProductID: "p2", Priority: 3}},
		},
		Summary: domain.StockSummary{TotalProducts: 5, AlertsGenerated: 2},
	}
}

func TestMemoryAlertCache_GetSet(t *testing.T) {
	c := NewMemoryAlertCache(time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleAnalysis()))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Summary.AlertsGenerated)
}

func TestMemoryAlertCache_Expires(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c := &memoryAlertCache{ttl: 5 * time.Minute, now: func() time.Time { return now }}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, sampleAnalysis()))

	now = now.Add(4 * time.Minute)
	_, ok, _ := c.Get(ctx)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryAlertCache_MarkRead(t *testing.T) {
	c := NewMemoryAlertCache(time.Minute)
	ctx := context.Background()

	// empty cache is a no-op
	require.NoError(t, c.MarkRead(ctx, "alert-p1"))

	require.NoError(t, c.Set(ctx, sampleAnalysis()))
	require.NoError(t, c.MarkRead(ctx, "alert-p2"))
	require.NoError(t, c.MarkRead(ctx, "alert-missing"))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.FindAlert("alert-p1").Read)
	assert.True(t, got.FindAlert("alert-p2").Read)
}

func TestMemoryAlertCache_GetReturnsCopy(t *testing.T) {
	c := NewMemoryAlertCache(time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, sampleAnalysis()))

	got, _, _ := c.Get(ctx)
	got.Alerts[0].Read = true

	again, _, _ := c.Get(ctx)
	assert.False(t, again.Alerts[0].Read)
}

func TestMemoryAlertCache_Invalidate(t *testing.T) {
	c := NewMemoryAlertCache(time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, sampleAnalysis()))

	require.NoError(t, c.Invalidate(ctx))

	_, ok, _ := c.Get(ctx)
	assert.False(t, ok)
}

func TestNewAlertCache_DisabledUsesMemory(t *testing.T) {
	c, err := NewAlertCache(config.CacheConfig{Enabled: false, AlertsTTLSeconds: 30})
	require.NoError(t, err)

	_, isMemory := c.(*memoryAlertCache)
	assert.True(t, isMemory)
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@localhost:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestAlertsTTL(t *testing.T) {
	assert.Equal(t, defaultCacheTTL, alertsTTL(config.CacheConfig{}))
	assert.Equal(t, 90*time.Second, alertsTTL(config.CacheConfig{AlertsTTLSeconds: 90}))
}

func TestNewAlertCache_EnabledUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewAlertCache(config.CacheConfig{Enabled: true, RedisURL: "redis://" + mr.Addr(), AlertsTTLSeconds: 30})
	require.NoError(t, err)

	_, isRedis := c.(*redisAlertCache)
	assert.True(t, isRedis)
}

func TestRedisAlertCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(config.CacheConfig{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := NewRedisAlertCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, sampleAnalysis()))
	require.NoError(t, c.MarkRead(ctx, "alert-p2"))
	require.NoError(t, c.MarkRead(ctx, "alert-unknown"))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Alerts[0].Read)
	assert.True(t, got.Alerts[1].Read)
	assert.Greater(t, mr.TTL(alertsKey), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAlertCache_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(config.CacheConfig{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := NewRedisAlertCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, sampleAnalysis()))
	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, mr.Exists(alertsKey))
}
