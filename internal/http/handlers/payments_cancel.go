package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"plantbid.kr/app/internal/http/middleware"
	"plantbid.kr/app/internal/modules/payments"
	"plantbid.kr/app/internal/shared/apperr"
)

type CancelHandler struct {
	Logger   *slog.Logger
	CancelSv *payments.CancelService
	Inicis   *payments.InicisClient
	Store    payments.Store
}

func NewCancelHandler(logger *slog.Logger, cancelSv *payments.CancelService, inicis *payments.InicisClient, store payments.Store) *CancelHandler {
	return &CancelHandler{Logger: logger, CancelSv: cancelSv, Inicis: inicis, Store: store}
}

type cancelInput struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// POST /api/admin/payments/:orderId/cancel
// The orchestrator owns retries, fallbacks and commit semantics; this
// handler only locates the record and maps the outcome onto HTTP.
func (h *CancelHandler) Cancel(c *gin.Context) {
	orderID := c.Param("orderId")
	if orderID == "" {
		middleware.Fail(c, apperr.InvalidErr("order id required", nil))
		return
	}

	// An empty body is fine; only a malformed one is rejected.
	var in cancelInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			middleware.Fail(c, apperr.InvalidErr("invalid cancel request", nil))
			return
		}
	}

	payment, err := h.Store.GetPaymentByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("payment not found for order"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	if payment.Status == payments.StatusCancelled {
		// Terminal state; repeating the cancel is a no-op success.
		c.JSON(http.StatusOK, gin.H{
			"success":            true,
			"message":            "이미 취소된 결제입니다.",
			"portoneCallSuccess": true,
			"payment":            payment,
			"orderId":            orderID,
			"timestamp":          payment.UpdatedAt,
		})
		return
	}

	outcome := h.CancelSv.CancelWithRetry(c.Request.Context(), payment, orderID, in.Reason)
	c.JSON(outcome.HTTPStatus, outcome)
}

type inicisCancelInput struct {
	TID    string `json:"tid" binding:"required,max=255"`
	Reason string `json:"reason" binding:"omitempty,max=255"`
	Amount string `json:"amount" binding:"omitempty,max=32"`
}

// POST /api/admin/payments/inicis-cancel
// Direct Inicis refund for transactions that carry a MOI TID and bypass
// the PortOne cancellation surface.
func (h *CancelHandler) InicisCancel(c *gin.Context) {
	var in inicisCancelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("invalid inicis cancel request", nil))
		return
	}

	res, err := h.Inicis.CancelByTID(c.Request.Context(), in.TID, in.Reason, in.Amount)
	if err != nil {
		h.Logger.Error("inicis cancel failed", "tid", in.TID, "err", err)
		middleware.Fail(c, apperr.BadGatewayErr("이니시스 결제 취소에 실패했습니다.", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"resultCode": res.ResultCode,
		"resultMsg":  res.ResultMsg,
		"tid":        res.TID,
	})
}
