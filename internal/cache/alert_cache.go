package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const alertsKey = "stock_alerts:analysis"

// AlertCache holds the latest stock analysis for a bounded freshness window.
type AlertCache interface {
	Get(ctx context.Context) (*domain.StockAnalysis, bool, error)
	Set(ctx context.Context, analysis *domain.StockAnalysis) error
	// MarkRead flips the read flag of a cached alert. Unknown ids and an empty
	// cache are not errors.
	MarkRead(ctx context.Context, alertID string) error
	Invalidate(ctx context.Context) error
}

// NewAlertCache returns a redis-backed cache when caching is enabled and an
// in-process cache otherwise.
func NewAlertCache(cfg config.CacheConfig) (AlertCache, error) {
	if !cfg.Enabled {
		return NewMemoryAlertCache(alertsTTL(cfg)), nil
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisAlertCache(client, alertsTTL(cfg)), nil
}

type memoryAlertCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	analysis  *domain.StockAnalysis
	expiresAt time.Time
}

func NewMemoryAlertCache(ttl time.Duration) AlertCache {
	return &memoryAlertCache{ttl: ttl, now: time.Now}
}

func (c *memoryAlertCache) Get(ctx context.Context) (*domain.StockAnalysis, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.analysis == nil || !c.now().Before(c.expiresAt) {
		c.analysis = nil
		return nil, false, nil
	}
	return cloneAnalysis(c.analysis), true, nil
}

func (c *memoryAlertCache) Set(ctx context.Context, analysis *domain.StockAnalysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analysis = cloneAnalysis(analysis)
	c.expiresAt = c.now().Add(c.ttl)
	return nil
}

func (c *memoryAlertCache) MarkRead(ctx context.Context, alertID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.analysis == nil {
		return nil
	}
	if alert := c.analysis.FindAlert(alertID); alert != nil {
		alert.Read = true
	}
	return nil
}

func (c *memoryAlertCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.analysis = nil
	return nil
}

func cloneAnalysis(a *domain.StockAnalysis) *domain.StockAnalysis {
	out := *a
	out.Alerts = append(make([]domain.Alert, 0, len(a.Alerts)), a.Alerts...)
	return &out
}

type redisAlertCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAlertCache(client *redis.Client, ttl time.Duration) AlertCache {
	return &redisAlertCache{client: client, ttl: ttl}
}

func (c *redisAlertCache) Get(ctx context.Context) (*domain.StockAnalysis, bool, error) {
	payload, err := c.client.Get(ctx, alertsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var analysis domain.StockAnalysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, false, fmt.Errorf("decode stock alerts cache: %w", err)
	}

	return &analysis, true, nil
}

func (c *redisAlertCache) Set(ctx context.Context, analysis *domain.StockAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode stock alerts cache: %w", err)
	}

	if err := c.client.Set(ctx, alertsKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// MarkRead rewrites the cached payload keeping its remaining TTL. Concurrent
// marks race benignly: the last writer wins.
func (c *redisAlertCache) MarkRead(ctx context.Context, alertID string) error {
	analysis, ok, err := c.Get(ctx)
	if err != nil || !ok {
		return err
	}

	alert := analysis.FindAlert(alertID)
	if alert == nil || alert.Read {
		return nil
	}
	alert.Read = true

	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode stock alerts cache: %w", err)
	}
	if err := c.client.SetArgs(ctx, alertsKey, payload, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAlertCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, alertsKey).Err()
}
