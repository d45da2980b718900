package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/retailbill/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const storeUnavailable = "service temporarily unavailable, try again"

// respondError maps domain errors to status codes.
func respondError(c *gin.Context, err error) {
	respondBillingError(c, err, storeUnavailable)
}

// respondBillingError is respondError with numberUnavailable shown when a
// document number could not be generated. Failures after the number was
// reserved get the generic 503 message.
func respondBillingError(c *gin.Context, err error, numberUnavailable string) {
	switch {
	case errors.Is(err, domain.ErrNumberUnavailable):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("number unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": numberUnavailable})
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": storeUnavailable})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
