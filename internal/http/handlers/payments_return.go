package handlers

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"plantbid.kr/app/internal/modules/bids"
	"plantbid.kr/app/internal/modules/orders"
	"plantbid.kr/app/internal/modules/payments"
)

// ReturnHandler backs the legacy V1-style redirect endpoints. The provider
// sends the browser back here after checkout; the page posts the result to
// the opener window and closes itself.
type ReturnHandler struct {
	Logger *slog.Logger
	Store  payments.Store
}

func NewReturnHandler(logger *slog.Logger, store payments.Store) *ReturnHandler {
	return &ReturnHandler{Logger: logger, Store: store}
}

var postMessagePage = template.Must(template.New("postmessage").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>결제 처리중...</title></head>
<body>
<script>
  (function () {
    var payload = {{.Payload}};
    if (window.opener) {
      window.opener.postMessage(payload, "*");
      window.close();
    } else {
      document.body.innerText = payload.type === "PAYMENT_SUCCESS"
        ? "결제가 완료되었습니다. 이 창을 닫아주세요."
        : "결제에 실패했습니다. 이 창을 닫아주세요.";
    }
  })();
</script>
</body>
</html>`))

func (h *ReturnHandler) renderPostMessage(c *gin.Context, status int, payload map[string]any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	_ = postMessagePage.Execute(c.Writer, map[string]any{"Payload": template.JS(raw)})
}

// GET /api/payments/portone-success?imp_uid=...&merchant_uid=...&amount=...
// Verifies the paid amount against the stored bid price before any local
// state is written; a mismatch renders the failure page without mutation.
func (h *ReturnHandler) Success(c *gin.Context) {
	impUID := c.Query("imp_uid")
	merchantUID := c.Query("merchant_uid")
	amountStr := c.Query("amount")

	if impUID == "" || merchantUID == "" {
		h.fail(c, "필수 결제 정보가 누락되었습니다.", "MISSING_PARAMS")
		return
	}

	ctx := c.Request.Context()
	now := time.Now()

	payment, err := h.Store.GetPaymentByOrderID(ctx, merchantUID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.Logger.Error("payment lookup failed", "order_id", merchantUID, "err", err)
		h.fail(c, "결제 정보 조회에 실패했습니다.", "LOOKUP_FAILED")
		return
	}

	// Amount check against the agreed bid price, when this payment came
	// from a bid negotiation.
	var bid *bids.Bid
	if payment != nil && payment.BidID != nil {
		bid, err = h.Store.GetBidByID(ctx, *payment.BidID)
		if err != nil {
			h.Logger.Error("bid lookup failed", "bid_id", *payment.BidID, "err", err)
			h.fail(c, "입찰 정보 조회에 실패했습니다.", "BID_LOOKUP_FAILED")
			return
		}
		if amountStr != "" && !amountsEqual(amountStr, bid.AgreedPrice) {
			h.Logger.Error("paid amount does not match bid price",
				"order_id", merchantUID, "paid", amountStr, "agreed", bid.AgreedPrice)
			h.fail(c, "결제 금액이 일치하지 않습니다.", "AMOUNT_MISMATCH")
			return
		}
	}

	amount := amountStr
	if payment != nil {
		if amount == "" {
			amount = payment.Amount
		}
		err = h.Store.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":      payments.StatusDone,
			"payment_key": impUID,
			"method":      "card",
			"updated_at":  now,
		})
	} else {
		// No prepared record: legacy flow where checkout started outside
		// this backend. Persist the confirmed payment fresh.
		err = h.Store.CreatePayment(ctx, &payments.Payment{
			ID:          uuid.NewString(),
			UserID:      "",
			PaymentKey:  impUID,
			MerchantUID: merchantUID,
			OrderID:     merchantUID,
			OrderName:   "plant order",
			Amount:      amount,
			Status:      payments.StatusDone,
			Method:      "card",
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if err != nil {
		h.Logger.Error("payment persist failed", "order_id", merchantUID, "err", err)
		h.fail(c, "결제 정보 저장에 실패했습니다.", "PERSIST_FAILED")
		return
	}

	if err := h.Store.UpdateOrderStatusByOrderID(ctx, merchantUID, orders.StatusPaid); err != nil {
		h.Logger.Warn("order status update failed", "order_id", merchantUID, "err", err)
	}
	if bid != nil {
		if err := h.Store.UpdateBidStatus(ctx, bid.ID, bids.StatusPaid); err != nil {
			h.Logger.Warn("bid status update failed", "bid_id", bid.ID, "err", err)
		}
	}

	h.renderPostMessage(c, http.StatusOK, map[string]any{
		"type":       "PAYMENT_SUCCESS",
		"paymentKey": impUID,
		"orderId":    merchantUID,
		"amount":     amount,
	})
}

// GET /api/payments/portone-fail?message=...&code=...
func (h *ReturnHandler) Fail(c *gin.Context) {
	message := c.Query("message")
	if message == "" {
		message = "결제가 취소되었거나 실패했습니다."
	}
	h.fail(c, message, c.Query("code"))
}

func (h *ReturnHandler) fail(c *gin.Context, message, code string) {
	h.renderPostMessage(c, http.StatusOK, map[string]any{
		"type":    "PAYMENT_FAIL",
		"message": message,
		"code":    code,
	})
}

func amountsEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return a == b
	}
	return fa == fb
}
