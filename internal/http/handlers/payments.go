package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantbid.kr/app/internal/http/middleware"
	"plantbid.kr/app/internal/http/validation"
	"plantbid.kr/app/internal/modules/payments"
	"plantbid.kr/app/internal/shared/apperr"
)

type PaymentHandler struct {
	Logger    *slog.Logger
	PrepareSv *payments.PrepareService
	Store     payments.Store
	BaseURL   string
}

func NewPaymentHandler(logger *slog.Logger, prepareSv *payments.PrepareService, store payments.Store, baseURL string) *PaymentHandler {
	return &PaymentHandler{Logger: logger, PrepareSv: prepareSv, Store: store, BaseURL: baseURL}
}

type prepareInput struct {
	BidID         string `json:"bidId" binding:"omitempty,max=64"`
	OrderID       string `json:"orderId" binding:"required,max=64"`
	ProductName   string `json:"productName" binding:"required,max=255"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	CustomerEmail string `json:"customerEmail" binding:"omitempty,email,max=255"`
	CustomerName  string `json:"customerName" binding:"omitempty,max=100"`
}

// POST /api/payments/portone-prepare-simple
func (h *PaymentHandler) PrepareSimple(c *gin.Context) {
	h.prepare(c, false)
}

// POST /api/payments/portone-prepare
// Same shape, plus success/fail redirect URLs derived from the request host.
func (h *PaymentHandler) Prepare(c *gin.Context) {
	h.prepare(c, true)
}

func (h *PaymentHandler) prepare(c *gin.Context, withRedirects bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
		return
	}

	var in prepareInput
	if err := c.ShouldBindJSON(&in); err != nil {
		errs := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid payment request.", errs))
		return
	}

	input := payments.PrepareInput{
		BidID:         in.BidID,
		OrderID:       in.OrderID,
		ProductName:   in.ProductName,
		Amount:        in.Amount,
		UserID:        user.ID,
		CustomerEmail: in.CustomerEmail,
		CustomerName:  in.CustomerName,
	}
	if withRedirects {
		base := h.baseURLFor(c)
		input.SuccessURL = base + "/api/payments/portone-success"
		input.FailURL = base + "/api/payments/portone-fail"
	}

	res, err := h.PrepareSv.Prepare(c.Request.Context(), input)
	if err != nil {
		h.Logger.Error("payment prepare failed", "order_id", in.OrderID, "err", err)
		middleware.Fail(c, apperr.BadGatewayErr("결제 준비에 실패했습니다. 잠시 후 다시 시도해주세요.", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"paymentId": res.PaymentID,
		"orderId":   res.OrderID,
		"orderName": res.OrderName,
		"amount":    res.Amount,
		"url":       res.URL,
		"clientKey": res.ClientKey,
	})
}

func (h *PaymentHandler) baseURLFor(c *gin.Context) string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host
}
