package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PortOneClient wraps the PortOne V2 REST surface used by the checkout and
// cancellation flows. All calls go through the injected http.Client, whose
// timeout bounds every provider round-trip.
type PortOneClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewPortOneClient(cfg Config, logger *slog.Logger) *PortOneClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortOneClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// SetHTTPClient swaps the underlying client (tests point it at a fake).
func (c *PortOneClient) SetHTTPClient(h *http.Client) { c.http = h }

// APIError carries the provider's HTTP status and raw JSON body so the
// orchestrator can classify the failure without re-parsing upstream.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portone api error: status=%d body=%s", e.Status, e.Body)
}

type CreatePaymentParams struct {
	OrderID            string
	OrderName          string
	Amount             int64
	Currency           string
	CustomerEmail      string
	CustomerName       string
	SuccessRedirectURL string
	FailRedirectURL    string
}

type PaymentAmount struct {
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

type PaymentCustomer struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// CreatePaymentResponse is returned verbatim from the provider; callers
// extract CheckoutURL / PaymentID.
type CreatePaymentResponse struct {
	PaymentID   string `json:"paymentId"`
	CheckoutURL string `json:"checkoutUrl"`
	Raw         json.RawMessage `json:"-"`
}

func (c *PortOneClient) CreatePayment(ctx context.Context, p CreatePaymentParams) (*CreatePaymentResponse, error) {
	if c.cfg.APISecret == "" {
		return nil, ErrSecretNotConfigured
	}

	currency := p.Currency
	if currency == "" {
		currency = "KRW"
	}

	body := map[string]any{
		"orderId":    p.OrderID,
		"orderName":  p.OrderName,
		"amount":     PaymentAmount{Total: p.Amount, Currency: currency},
		"channelKey": c.cfg.ChannelKey,
	}
	if p.CustomerEmail != "" || p.CustomerName != "" {
		body["customer"] = PaymentCustomer{Email: p.CustomerEmail, Name: p.CustomerName}
	}
	if p.SuccessRedirectURL != "" {
		body["successRedirectUrl"] = p.SuccessRedirectURL
	}
	if p.FailRedirectURL != "" {
		body["failRedirectUrl"] = p.FailRedirectURL
	}

	raw, err := c.do(ctx, http.MethodPost, "/v2/payments", nil, body, nil)
	if err != nil {
		return nil, err
	}

	var out CreatePaymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("portone create payment: decode response: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// ProviderPayment is the subset of a PortOne payment object the app reads.
type ProviderPayment struct {
	ID          string `json:"id"`
	TransactionID string `json:"transactionId"`
	OrderName   string `json:"orderName"`
	Status      string `json:"status"`
	Method      struct {
		Type string `json:"type"`
	} `json:"method"`
	Amount struct {
		Total int64 `json:"total"`
	} `json:"amount"`
	ReceiptURL string `json:"receiptUrl"`
}

// GetPayment fetches a single payment. A 404 means the provider does not
// know the id; it is reported as ErrPaymentNotFound so callers can treat
// it differently from transport or auth failures.
func (c *PortOneClient) GetPayment(ctx context.Context, paymentID string) (*ProviderPayment, error) {
	if c.cfg.APISecret == "" {
		return nil, ErrSecretNotConfigured
	}

	raw, err := c.do(ctx, http.MethodGet, "/v2/payments/"+url.PathEscape(paymentID), nil, nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 404 {
			c.logger.Warn("payment unknown to provider", "payment_id", paymentID)
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
		}
		return nil, err
	}

	var out ProviderPayment
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("portone get payment: decode response: %w", err)
	}
	return &out, nil
}

type CancelParams struct {
	PaymentID    string
	Reason       string
	CancelAmount int64 // 0 => full cancel
}

type CancelResponse struct {
	CancelledID string          `json:"cancelledId"`
	Status      string          `json:"status"`
	Raw         json.RawMessage `json:"-"`
}

// CancelPayment cancels a payment at the provider. Hyphenated legacy UUIDs
// are sent as-is (some PortOne deployments accept them directly) instead of
// forcing a lossy pay_ conversion; anything else is normalized to the
// strict pay_+22 form first.
func (c *PortOneClient) CancelPayment(ctx context.Context, p CancelParams) (*CancelResponse, error) {
	if c.cfg.APISecret == "" {
		return nil, ErrSecretNotConfigured
	}

	if legacyUUIDPattern.MatchString(p.PaymentID) {
		c.logger.Info("cancelling with original uuid payment id", "payment_id", p.PaymentID)
		return c.cancelWithID(ctx, p.PaymentID, p)
	}

	id := p.PaymentID
	if !IsValidPortoneV2ID(id) {
		id = ConvertToV2PaymentID(id)
		c.logger.Info("normalized payment id for cancel", "from", p.PaymentID, "to", id)
	}
	return c.cancelWithID(ctx, id, p)
}

func (c *PortOneClient) cancelWithID(ctx context.Context, id string, p CancelParams) (*CancelResponse, error) {
	body := map[string]any{"reason": p.Reason}
	if p.CancelAmount > 0 {
		body["cancelAmount"] = p.CancelAmount
	}

	// A fresh key per attempt. PortOne scopes the idempotency key to exact
	// request intent; a retry after a timeout whose outcome is unknown must
	// not be silently deduplicated against the earlier request.
	headers := map[string]string{"Idempotency-Key": newIdempotencyKey()}

	raw, err := c.do(ctx, http.MethodPost, "/v2/payments/"+url.PathEscape(id)+"/cancel", nil, body, headers)
	if err != nil {
		return nil, err
	}

	var out CancelResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("portone cancel: decode response: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// newIdempotencyKey: cancel-{epoch-ms}-{8 random base36 chars}.
func newIdempotencyKey() string {
	const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 8)
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("cancel-%d-%s", time.Now().UnixMilli(), string(b))
}

type SearchParams struct {
	OrderID   string
	PaymentID string
	Status    string
	From      time.Time
	To        time.Time
	CustomerEmail string
	Page      int
	Size      int
}

type SearchResult struct {
	Items []ProviderPayment `json:"items"`
	Page  struct {
		Number     int `json:"number"`
		Size       int `json:"size"`
		TotalCount int `json:"totalCount"`
	} `json:"page"`
}

// SearchPayments lists payments matching the filters. The cancellation
// orchestrator uses this to recover the provider's canonical payment id
// when the locally stored key is suspect.
func (c *PortOneClient) SearchPayments(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if c.cfg.APISecret == "" {
		return nil, ErrSecretNotConfigured
	}

	q := url.Values{}
	if p.OrderID != "" {
		q.Set("orderId", p.OrderID)
	}
	if p.PaymentID != "" {
		q.Set("paymentId", p.PaymentID)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if !p.From.IsZero() {
		q.Set("from", p.From.UTC().Format(time.RFC3339))
	}
	if !p.To.IsZero() {
		q.Set("until", p.To.UTC().Format(time.RFC3339))
	}
	if p.CustomerEmail != "" {
		q.Set("customerEmail", p.CustomerEmail)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}

	raw, err := c.do(ctx, http.MethodGet, "/v2/payments", q, nil, nil)
	if err != nil {
		return nil, err
	}

	var out SearchResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("portone search: decode response: %w", err)
	}
	return &out, nil
}

// SmartCancel is the secondary cancellation strategy. It checks the live
// provider status first (already cancelled counts as success), then tries
// to recover the canonical id by order search before issuing the cancel.
func (c *PortOneClient) SmartCancel(ctx context.Context, paymentID, orderID, reason string) (*CancelResponse, error) {
	if pay, err := c.GetPayment(ctx, paymentID); err == nil {
		if NormalizeProviderStatus(pay.Status) == StatusCancelled {
			c.logger.Info("smart cancel: payment already cancelled at provider", "payment_id", paymentID)
			return &CancelResponse{CancelledID: pay.ID, Status: pay.Status}, nil
		}
	}

	id := paymentID
	if orderID != "" {
		if res, err := c.SearchPayments(ctx, SearchParams{OrderID: orderID, Size: 1}); err == nil && len(res.Items) > 0 {
			found := res.Items[0].ID
			if found != "" && found != id {
				c.logger.Info("smart cancel: using searched payment id", "order_id", orderID, "payment_id", found)
				id = found
			}
		}
	}

	return c.CancelPayment(ctx, CancelParams{PaymentID: id, Reason: reason})
}

// TestConnection verifies the configured secret is accepted by the API.
// Never returns an error: callers get a plain ok/message pair.
func (c *PortOneClient) TestConnection(ctx context.Context) (bool, string) {
	if c.cfg.APISecret == "" {
		return false, "portone api secret not configured"
	}

	q := url.Values{}
	q.Set("size", "1")
	if _, err := c.do(ctx, http.MethodGet, "/v2/payments", q, nil, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			return false, "portone rejected the configured api secret"
		}
		return false, "portone connection failed: " + err.Error()
	}
	return true, "portone connection ok"
}

func (c *PortOneClient) do(ctx context.Context, method, path string, query url.Values, body any, headers map[string]string) (json.RawMessage, error) {
	u := strings.TrimRight(c.cfg.APIBase, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "PortOne "+c.cfg.APISecret)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.StoreID != "" {
		req.Header.Set("Store-Id", c.cfg.StoreID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portone request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("portone read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("portone api error",
			"method", method, "path", path,
			"status", resp.StatusCode, "body", truncateStr(string(respBody), 500))
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
