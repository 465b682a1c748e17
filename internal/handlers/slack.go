package handlers

import (
	"errors"
	"net/http"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/gin-gonic/gin"
)

type SlackHandler struct {
	notifier *services.SlackNotifier
}

func NewSlackHandler(notifier *services.SlackNotifier) *SlackHandler {
	return &SlackHandler{notifier: notifier}
}

// TestWebhook sends a test message to the given webhook URL
func (h *SlackHandler) TestWebhook(c *gin.Context) {
	var req struct {
		WebhookURL string `json:"webhookUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.notifier.TestWebhook(c.Request.Context(), req.WebhookURL)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
			return
		}
		logger.Component("slack").WithError(err).Warn("Slack webhook test failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Slack rejected the webhook request. Please check the URL."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
