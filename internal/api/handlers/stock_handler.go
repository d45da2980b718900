package handlers

import (
	"fmt"
	"net/http"

	"github.com/andresuchdata/retailbill/backend-go/internal/advisor"
	"github.com/andresuchdata/retailbill/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type StockHandler struct {
	service *service.StockAdvisoryService
}

func NewStockHandler(service *service.StockAdvisoryService) *StockHandler {
	return &StockHandler{service: service}
}

// GetAlerts always answers 200; a failed analysis carries summary.error.
func (h *StockHandler) GetAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.AnalyzeStock(c.Request.Context()))
}

func (h *StockHandler) Refresh(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Refresh(c.Request.Context()))
}

func (h *StockHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkAlertRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}

// ExportReport streams the current alerts as a reorder CSV.
func (h *StockHandler) ExportReport(c *gin.Context) {
	analysis := h.service.AnalyzeStock(c.Request.Context())

	filename := fmt.Sprintf("reorder-report-%s.csv", analysis.Summary.LastUpdated.Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := advisor.WriteCSV(c.Writer, analysis.Alerts); err != nil {
		log.Error().Err(err).Msg("failed to write reorder report")
	}
}
