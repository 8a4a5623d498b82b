package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// PrepareService creates the local READY payment record and asks PortOne
// for a checkout session. The provider-compatible paymentKey/merchantUID
// pair is minted up front so storage has a consistently shaped identifier
// before the provider round-trip completes.
type PrepareService struct {
	cfg     Config
	client  *PortOneClient
	store   Store
	logger  *slog.Logger
}

func NewPrepareService(cfg Config, client *PortOneClient, store Store, logger *slog.Logger) *PrepareService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrepareService{cfg: cfg, client: client, store: store, logger: logger}
}

type PrepareInput struct {
	BidID         string
	OrderID       string
	ProductName   string
	Amount        int64
	UserID        string
	CustomerEmail string
	CustomerName  string
	SuccessURL    string
	FailURL       string
}

type PrepareResult struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	OrderName string `json:"orderName"`
	Amount    int64  `json:"amount"`
	URL       string `json:"url"`
	ClientKey string `json:"clientKey"`
}

func (s *PrepareService) Prepare(ctx context.Context, in PrepareInput) (*PrepareResult, error) {
	if s.cfg.APISecret == "" {
		return nil, ErrSecretNotConfigured
	}
	if in.OrderID == "" || in.ProductName == "" || in.Amount <= 0 {
		return nil, fmt.Errorf("prepare: missing order id, product name or amount")
	}

	paymentKey := GeneratePortonePaymentID()
	merchantUID := "ord_" + uuid.NewString()

	resp, err := s.client.CreatePayment(ctx, CreatePaymentParams{
		OrderID:            in.OrderID,
		OrderName:          in.ProductName,
		Amount:             in.Amount,
		CustomerEmail:      in.CustomerEmail,
		CustomerName:       in.CustomerName,
		SuccessRedirectURL: in.SuccessURL,
		FailRedirectURL:    in.FailURL,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare: provider create payment: %w", err)
	}

	// Without a real checkout URL the storefront must not render a payment
	// button, so an absent URL is a hard failure here, not a soft default.
	if resp.CheckoutURL == "" {
		return nil, ErrNoCheckoutURL
	}
	if resp.PaymentID != "" {
		paymentKey = resp.PaymentID
	}

	now := time.Now()
	var bidPtr *string
	if in.BidID != "" {
		b := in.BidID
		bidPtr = &b
	}
	p := &Payment{
		ID:          uuid.NewString(),
		BidID:       bidPtr,
		UserID:      in.UserID,
		PaymentKey:  paymentKey,
		MerchantUID: merchantUID,
		OrderID:     in.OrderID,
		OrderName:   in.ProductName,
		Amount:      strconv.FormatInt(in.Amount, 10),
		Status:      StatusReady,
		Method:      "",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("prepare: persist payment record: %w", err)
	}

	s.logger.Info("payment prepared",
		"order_id", in.OrderID, "payment_key", paymentKey, "amount", in.Amount)

	return &PrepareResult{
		PaymentID: paymentKey,
		OrderID:   in.OrderID,
		OrderName: in.ProductName,
		Amount:    in.Amount,
		URL:       resp.CheckoutURL,
		ClientKey: s.cfg.ChannelKey,
	}, nil
}
