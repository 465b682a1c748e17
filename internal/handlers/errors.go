package handlers

import (
	"errors"
	"net/http"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to an HTTP status. Unexpected errors are
// logged and answered with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrRateLimitTooLow):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCheckInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case githubclient.IsRateLimited(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "GitHub rate limit exceeded. Please try again later."})
	case githubclient.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "GitHub rejected the token"})
	default:
		logger.WithField("path", c.FullPath()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
