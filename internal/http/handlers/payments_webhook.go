package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantbid.kr/app/internal/modules/payments"
)

type WebhookHandler struct {
	Logger     *slog.Logger
	WebhookSvc *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, WebhookSvc: svc}
}

// POST /api/payments/portone-webhook
// The payload is only a hint; the service re-queries the provider before
// any state change. A 500 answer makes PortOne redeliver.
func (h *WebhookHandler) HandlePortone(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	var hook payments.PortoneWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	if err := h.WebhookSvc.HandlePortone(c.Request.Context(), hook, body); err != nil {
		h.Logger.Error("webhook apply failed", "type", hook.Type, "payment_id", hook.Data.PaymentID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
