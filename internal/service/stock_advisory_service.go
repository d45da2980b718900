package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/advisor"
	"github.com/andresuchdata/retailbill/backend-go/internal/cache"
	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// StockAdvisoryService serves the stock alerts panel. It never fails: when
// products cannot be loaded it returns a degraded analysis instead.
type StockAdvisoryService struct {
	products repository.ProductRepository
	engine   *advisor.Engine
	cache    cache.AlertCache
	now      func() time.Time
}

func NewStockAdvisoryService(products repository.ProductRepository, engine *advisor.Engine, cacheImpl cache.AlertCache) *StockAdvisoryService {
	if engine == nil {
		engine = advisor.NewEngine()
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewMemoryAlertCache(5 * time.Minute)
	}
	return &StockAdvisoryService{products: products, engine: engine, cache: cacheImpl, now: time.Now}
}

func (s *StockAdvisoryService) AnalyzeStock(ctx context.Context) *domain.StockAnalysis {
	if analysis, ok, err := s.cache.Get(ctx); err == nil && ok {
		return analysis
	} else if err != nil {
		log.Warn().Err(err).Msg("stock alerts: cache get failed")
	}

	products, err := s.products.ListProducts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("stock alerts: failed to load products")
		degraded := advisor.Degraded(s.now(), fmt.Errorf("failed to load products: %w", err))
		return &degraded
	}

	analysis := s.engine.Analyze(products)
	if err := s.cache.Set(ctx, &analysis); err != nil {
		log.Warn().Err(err).Msg("stock alerts: cache set failed")
	}

	log.Debug().
		Int("products", analysis.Summary.TotalProducts).
		Int("alerts", analysis.Summary.AlertsGenerated).
		Msg("stock analysis computed")
	return &analysis
}

// Refresh drops the cached analysis and recomputes it.
func (s *StockAdvisoryService) Refresh(ctx context.Context) *domain.StockAnalysis {
	if err := s.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("stock alerts: invalidate failed")
	}
	return s.AnalyzeStock(ctx)
}

// MarkAlertRead flags a cached alert as read. Unknown ids are ignored.
func (s *StockAdvisoryService) MarkAlertRead(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("alert id is required: %w", domain.ErrInvalidInput)
	}
	return s.cache.MarkRead(ctx, alertID)
}

func (s *StockAdvisoryService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}
