package payments

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// InicisClient issues direct cancellation calls against the Inicis refund
// API, bypassing the PortOne aggregation layer. Used when a transaction
// carries an Inicis MOI TID.
type InicisClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	nowFn  func() time.Time
}

func NewInicisClient(cfg Config, logger *slog.Logger) *InicisClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &InicisClient{
		cfg:    cfg,
		http:   http.DefaultClient,
		logger: logger,
		nowFn:  time.Now,
	}
}

func (c *InicisClient) SetHTTPClient(h *http.Client) { c.http = h }

const (
	inicisRefundType      = "Refund"
	inicisRefundPaymethod = "Card"
	// Placeholder client ip sent in test mode; the refund API requires the
	// field but does not verify it against the caller.
	inicisTestClientIP = "127.0.0.1"

	defaultCancelReason = "고객 요청에 의한 취소" // cancellation at customer's request
	defaultCancelPrice  = "1000"
)

// RefundHash builds the SHA-512 signature Inicis verifies. The fields are
// concatenated with no delimiters, in exactly this order:
// apiKey + type + paymethod + timestamp + clientIp + mid + tid.
// The order is fixed by the provider's verification algorithm; reordering
// produces a hash Inicis rejects with no indication of why.
func RefundHash(apiKey, timestamp, clientIP, mid, tid string) string {
	sum := sha512.Sum512([]byte(apiKey + inicisRefundType + inicisRefundPaymethod + timestamp + clientIP + mid + tid))
	return strings.ToLower(hex.EncodeToString(sum[:]))
}

type InicisCancelResult struct {
	Success    bool   `json:"success"`
	ResultCode string `json:"resultCode"`
	ResultMsg  string `json:"resultMsg"`
	TID        string `json:"tid"`
}

// CancelByTID cancels an Inicis transaction given its raw TID (or a receipt
// URL containing one). A response saying the transaction is already
// cancelled or unknown is returned as success: cancellation stays
// idempotent from the caller's perspective.
func (c *InicisClient) CancelByTID(ctx context.Context, rawTID, reason, amount string) (*InicisCancelResult, error) {
	if c.cfg.InicisAPIKey == "" {
		return nil, fmt.Errorf("inicis api key not configured")
	}

	moi, ok := ExtractInicisTID(rawTID)
	if !ok {
		return nil, fmt.Errorf("no MOI transaction id in %q", rawTID)
	}

	now := c.nowFn()
	timestamp := now.Format("20060102150405")
	tid := FormatTIDForCancel(moi, timestamp)

	if reason == "" {
		reason = defaultCancelReason
	}
	if amount == "" {
		amount = defaultCancelPrice
	}

	clientIP := inicisTestClientIP
	hash := RefundHash(c.cfg.InicisAPIKey, timestamp, clientIP, c.cfg.InicisMID, tid)

	form := url.Values{}
	form.Set("type", inicisRefundType)
	form.Set("paymethod", inicisRefundPaymethod)
	form.Set("timestamp", timestamp)
	form.Set("clientIp", clientIP)
	form.Set("mid", c.cfg.InicisMID)
	form.Set("tid", tid)
	form.Set("msg", reason)
	form.Set("price", amount)
	form.Set("hashData", hash)
	form.Set("currency", "WON")

	endpoint := strings.TrimRight(c.cfg.InicisHost, "/") + "/api/v1/refund"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inicis refund request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("inicis read response: %w", err)
	}
	bodyText := string(body)

	if resp.StatusCode >= 400 {
		if IsInicisAlreadyCancelled(bodyText) {
			c.logger.Info("inicis refund: already cancelled or unknown, treating as success",
				"tid", tid, "status", resp.StatusCode)
			return &InicisCancelResult{Success: true, ResultCode: "01", ResultMsg: bodyText, TID: tid}, nil
		}
		return nil, fmt.Errorf("inicis refund failed: status=%d body=%s", resp.StatusCode, truncateStr(bodyText, 300))
	}

	var parsed struct {
		ResultCode string `json:"resultCode"`
		ResultMsg  string `json:"resultMsg"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if IsInicisAlreadyCancelled(bodyText) {
			return &InicisCancelResult{Success: true, ResultCode: "01", ResultMsg: bodyText, TID: tid}, nil
		}
		return nil, fmt.Errorf("inicis refund: unparseable response: %s", truncateStr(bodyText, 300))
	}

	switch parsed.ResultCode {
	case "00":
		return &InicisCancelResult{Success: true, ResultCode: "00", ResultMsg: parsed.ResultMsg, TID: tid}, nil
	default:
		if IsInicisAlreadyCancelled(parsed.ResultMsg) {
			c.logger.Info("inicis refund: already cancelled per result message", "tid", tid, "code", parsed.ResultCode)
			return &InicisCancelResult{Success: true, ResultCode: "01", ResultMsg: parsed.ResultMsg, TID: tid}, nil
		}
		return nil, fmt.Errorf("inicis refund rejected: code=%s msg=%s", parsed.ResultCode, parsed.ResultMsg)
	}
}
