// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/retailbill/backend-go/internal/api/handlers"
	"github.com/andresuchdata/retailbill/backend-go/internal/api/middleware"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Billing  *service.BillingService
	Products *service.ProductService
	Stock    *service.StockAdvisoryService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Billing != nil {
			billHandler := handlers.NewBillHandler(services.Billing)
			billGroup := apiGroup.Group("/bills")
			{
				billGroup.GET("/next-bill-number", billHandler.NextBillNumber)
				billGroup.POST("/create", billHandler.CreateBill)
				billGroup.GET("/:billNo", billHandler.GetBill)
			}

			purchaseGroup := apiGroup.Group("/purchases")
			{
				purchaseGroup.GET("/next-grn-number", billHandler.NextGRNNumber)
				purchaseGroup.POST("/create", billHandler.CreatePurchase)
				purchaseGroup.GET("/:grnNo", billHandler.GetPurchase)
			}
		}

		if services.Products != nil {
			productHandler := handlers.NewProductHandler(services.Products)
			productGroup := apiGroup.Group("/products")
			{
				productGroup.GET("/list", productHandler.ListProducts)
				productGroup.POST("", productHandler.UpsertProducts)
				productGroup.POST("/import", productHandler.ImportProducts)
				productGroup.GET("/:id", productHandler.GetProduct)
			}
		}

		if services.Stock != nil {
			stockHandler := handlers.NewStockHandler(services.Stock)
			stockGroup := apiGroup.Group("/stock")
			{
				stockGroup.GET("/alerts", stockHandler.GetAlerts)
				stockGroup.POST("/alerts/:id/read", stockHandler.MarkRead)
				stockGroup.POST("/refresh", stockHandler.Refresh)
				stockGroup.GET("/report.csv", stockHandler.ExportReport)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
