// backend-go/cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/advisor"
	"github.com/andresuchdata/retailbill/backend-go/internal/api"
	"github.com/andresuchdata/retailbill/backend-go/internal/cache"
	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/memory"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/redisstore"
	"github.com/andresuchdata/retailbill/backend-go/internal/sequence"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/andresuchdata/retailbill/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

// stores groups the repositories the services are built from.
type stores struct {
	products  repository.ProductRepository
	bills     repository.BillRepository
	purchases repository.PurchaseRepository
	counters  sequence.Store
	closers   []func() error
}

func (s *stores) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Log.Warn().Err(err).Msg("close failed")
		}
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Server.Mode, cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer st.Close()

	alertCache, err := cache.NewAlertCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize alert cache")
	}

	// Initialize services
	stockService := service.NewStockAdvisoryService(st.products, advisor.NewEngine(), alertCache)
	services := &api.Services{
		Billing:  service.NewBillingService(sequence.NewAllocator(st.counters), st.bills, st.purchases, stockService),
		Products: service.NewProductService(st.products, stockService),
		Stock:    stockService,
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("store", cfg.Store.Driver).
			Str("counters", cfg.Store.CounterBackend).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// openStores selects the document store by STORE_DRIVER and the counter store
// by COUNTER_BACKEND.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}

	var db *postgres.DB
	switch cfg.Store.Driver {
	case "memory":
		mem := memory.New()
		st.products, st.bills, st.purchases, st.counters = mem, mem, mem, mem
	case "postgres":
		var err error
		db, err = postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, err
		}
		st.products = postgres.NewProductRepository(db)
		st.bills = postgres.NewBillRepository(db)
		st.purchases = postgres.NewPurchaseRepository(db)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}

	switch cfg.Store.CounterBackend {
	case "memory":
		if st.counters == nil {
			st.counters = memory.New()
		}
	case "postgres":
		if db == nil {
			st.Close()
			return nil, fmt.Errorf("COUNTER_BACKEND=postgres requires STORE_DRIVER=postgres")
		}
		st.counters = postgres.NewCounterStore(db, cfg.Store.TxMaxRetries)
	case "redis":
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		st.closers = append(st.closers, client.Close)
		st.counters = redisstore.NewCounterStore(client, cfg.Store.TxMaxRetries)
	default:
		st.Close()
		return nil, fmt.Errorf("unknown COUNTER_BACKEND %q", cfg.Store.CounterBackend)
	}

	return st, nil
}
