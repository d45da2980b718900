package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/advisor"
	"github.com/andresuchdata/retailbill/backend-go/internal/cache"
	"github.com/andresuchdata/retailbill/backend-go/internal/config"
	"github.com/andresuchdata/retailbill/backend-go/internal/drive"
	"github.com/andresuchdata/retailbill/backend-go/internal/importer"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/memory"
	"github.com/andresuchdata/retailbill/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/andresuchdata/retailbill/backend-go/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Configure(cfg.Server.Mode, cfg.Server.LogLevel)

	ctx := context.Background()

	// Initialize Google Drive service
	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	folderID, err := resolveFolder(ctx, driveService, cfg.Drive.FolderID)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to resolve Drive folder")
	}

	// Initialize Repositories
	products, err := openProducts(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Product changes must drop cached alerts shared with the API server.
	alertCache, err := cache.NewAlertCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize alert cache")
	}
	stockService := service.NewStockAdvisoryService(products, advisor.NewEngine(), alertCache)

	// Initialize Services
	productService := service.NewProductService(products, stockService)
	ingestService := drive.NewIngestService(driveService, importer.New(productService))

	// Create router and register routes
	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService, folderID)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	logger.Log.Info().Str("addr", srv.Addr).Str("folder", folderID).Msg("Importer starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatal().Err(err).Msg("Importer stopped")
	}
}

// resolveFolder accepts a folder id or a slash separated path such as
// "Retail/Products".
func resolveFolder(ctx context.Context, svc *drive.Service, folder string) (string, error) {
	if !strings.Contains(folder, "/") {
		return folder, nil
	}
	return svc.FindFolderByPath(ctx, folder)
}

func openProducts(ctx context.Context, cfg *config.Config) (repository.ProductRepository, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Log.Warn().Msg("STORE_DRIVER=memory: imported products are not persisted")
		return memory.New(), nil
	case "postgres":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return postgres.NewProductRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}
