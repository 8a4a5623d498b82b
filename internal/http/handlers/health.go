package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantbid.kr/app/internal/modules/payments"
)

type HealthHandler struct {
	PortOne *payments.PortOneClient
}

func NewHealthHandler(client *payments.PortOneClient) *HealthHandler {
	return &HealthHandler{PortOne: client}
}

// GET /api/health
func (h *HealthHandler) Get(c *gin.Context) {
	ok, msg := h.PortOne.TestConnection(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"portone": gin.H{
			"connected": ok,
			"message":   msg,
		},
	})
}
