package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/service"
	"marketready/internal/store"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookHandler receives database lifecycle events from the data layer.
// Callers authenticate with a shared secret header.
type WebhookHandler struct {
	Store   *store.Store
	Webhook *service.InvitationWebhook
	Secret  string
	Logger  *zap.Logger
}

type webhookBody struct {
	Type   string `json:"type" binding:"required"`
	Table  string `json:"table" binding:"required"`
	Record struct {
		ID uint `json:"id" binding:"required"`
	} `json:"record" binding:"required"`
}

func (h *WebhookHandler) HandleInvitation(c *gin.Context) {
	// an empty secret would match an absent header, so it disables the
	// endpoint rather than opening it
	if h.Secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Webhook secret not configured"})
		return
	}

	provided := c.GetHeader(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.Secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook secret"})
		return
	}

	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if body.Type != "INSERT" || body.Table != "invitations" {
		c.JSON(http.StatusOK, gin.H{"success": true, "handled": false})
		return
	}

	invitation, err := h.Store.FindInvitationByID(c.Request.Context(), body.Record.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	result, err := h.Webhook.HandleInvitationWebhook(c.Request.Context(), invitation)
	if err != nil {
		h.Logger.Error("invitation webhook failed", zap.Uint("invitationId", invitation.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": result.Success, "handled": true})
}
