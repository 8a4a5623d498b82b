package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"plantbid.kr/app/internal/http/middleware"
	"plantbid.kr/app/internal/modules/bids"
	"plantbid.kr/app/internal/modules/orders"
	"plantbid.kr/app/internal/modules/payments"
)

type stubStore struct {
	payment *payments.Payment
}

func (s *stubStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*payments.Payment, error) {
	if s.payment == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.payment, nil
}

func (s *stubStore) CreatePayment(ctx context.Context, p *payments.Payment) error { return nil }

func (s *stubStore) UpdatePayment(ctx context.Context, id string, updates map[string]any) error {
	return nil
}

func (s *stubStore) UpdateOrderStatusByOrderID(ctx context.Context, orderID, status string) error {
	return nil
}

func (s *stubStore) GetOrderByOrderID(ctx context.Context, orderID string) (*orders.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStore) GetBidByID(ctx context.Context, id string) (*bids.Bid, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubStore) UpdateBidStatus(ctx context.Context, id, status string) error { return nil }

func newCancelRouter(store payments.Store, cancelSv *payments.CancelService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger))

	h := NewCancelHandler(logger, cancelSv, nil, store)
	r.POST("/api/admin/payments/:orderId/cancel", h.Cancel)
	return r
}

func TestCancelEndpoint_AlreadyCancelledIsIdempotentOK(t *testing.T) {
	store := &stubStore{payment: &payments.Payment{
		ID:         "p-1",
		OrderID:    "ord-7",
		PaymentKey: "pay_abcdefghijklmnopqrstuv",
		Status:     payments.StatusCancelled,
	}}
	// a nil-config service would fail loudly if the handler reached it
	cfg := payments.Config{APISecret: "sk_test", APIBase: "http://unused.invalid"}
	cancelSv := payments.NewCancelService(cfg, payments.NewPortOneClient(cfg, slog.Default()), store, slog.Default())

	r := newCancelRouter(store, cancelSv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/ord-7/cancel", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ord-7", body["orderId"])
}

func TestCancelEndpoint_UnknownOrderIs404(t *testing.T) {
	cfg := payments.Config{APISecret: "sk_test", APIBase: "http://unused.invalid"}
	store := &stubStore{}
	cancelSv := payments.NewCancelService(cfg, payments.NewPortOneClient(cfg, slog.Default()), store, slog.Default())

	r := newCancelRouter(store, cancelSv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/nope/cancel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelEndpoint_MalformedBodyRejected(t *testing.T) {
	cfg := payments.Config{APISecret: "sk_test", APIBase: "http://unused.invalid"}
	store := &stubStore{payment: &payments.Payment{
		ID: "p-1", OrderID: "ord-7", PaymentKey: "pay_abcdefghijklmnopqrstuv", Status: payments.StatusDone,
	}}
	cancelSv := payments.NewCancelService(cfg, payments.NewPortOneClient(cfg, slog.Default()), store, slog.Default())

	r := newCancelRouter(store, cancelSv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/payments/ord-7/cancel", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
