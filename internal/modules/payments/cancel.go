package payments

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"plantbid.kr/app/internal/modules/orders"
	"plantbid.kr/app/internal/storage"
)

// CancelService drives multi-attempt, multi-strategy cancellation against
// PortOne. Strategies run strictly in sequence (each may leave provider-side
// state the next one's preconditions depend on) and local records are
// written exactly once, only after a confirmed provider success.
// Notifier is told about committed state changes. Implementations must be
// best-effort; a notification failure never rolls anything back.
type Notifier interface {
	PaymentCancelled(ctx context.Context, p *Payment, orderID, reason string) error
	PaymentCompleted(ctx context.Context, p *Payment) error
}

type CancelService struct {
	cfg      Config
	client   *PortOneClient
	store    Store
	audit    *AuditLog
	archive  storage.Storage
	notifier Notifier
	logger   *slog.Logger

	maxAttempts int
	retryDelay  time.Duration
}

func NewCancelService(cfg Config, client *PortOneClient, store Store, logger *slog.Logger) *CancelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelService{
		cfg:         cfg,
		client:      client,
		store:       store,
		logger:      logger,
		maxAttempts: 3,
		retryDelay:  time.Second,
	}
}

// SetAudit wires the append-only attempt log (optional).
func (s *CancelService) SetAudit(a *AuditLog) { s.audit = a }

// SetArchive wires best-effort raw-response archival (optional).
func (s *CancelService) SetArchive(st storage.Storage) { s.archive = st }

// SetNotifier wires customer mail on committed cancellations (optional).
func (s *CancelService) SetNotifier(n Notifier) { s.notifier = n }

type CancelDetails struct {
	InitialAttempt     string `json:"initialAttempt,omitempty"`
	SmartCancelAttempt string `json:"smartCancelAttempt,omitempty"`
	OrderIDFallback    string `json:"orderIdFallback,omitempty"`
}

// CancelOutcome is the structured result every cancellation request
// resolves into. No code path panics or leaks an exception past the
// orchestrator; callers always get one of these.
type CancelOutcome struct {
	Success            bool          `json:"success"`
	PortoneCallSuccess bool          `json:"portoneCallSuccess"`
	HTTPStatus         int           `json:"-"`
	Message            string        `json:"message"`
	Error              string        `json:"error,omitempty"`
	Details            CancelDetails `json:"details"`
	Payment            *Payment      `json:"payment,omitempty"`
	Order              *orders.Order `json:"order,omitempty"`
	OrderID            string        `json:"orderId,omitempty"`
	Strategy           string        `json:"-"`
	Timestamp          time.Time     `json:"timestamp"`
}

type cancelState struct {
	payment    *Payment
	orderID    string
	reason     string
	resolvedID string

	lastErr     error
	initialErr  error
	smartErr    error
	fallbackErr error

	response *CancelResponse
}

// strategies are tried in order; the first success wins and no later
// strategy runs. Adding or removing a fallback is a one-line change here.
type cancelStrategy struct {
	name     string
	eligible func(st *cancelState) bool
	run      func(ctx context.Context, st *cancelState) (*CancelResponse, error)
}

// CancelWithRetry is the top-level cancellation state machine:
// resolve id -> primary attempts -> smart fallback -> order-id fallback ->
// commit on success / structured failure otherwise.
func (s *CancelService) CancelWithRetry(ctx context.Context, payment *Payment, orderID, reason string) *CancelOutcome {
	now := time.Now()

	// Fatal preconditions: reported before any provider call, distinctly
	// from provider-side rejections.
	if s.cfg.APISecret == "" {
		return &CancelOutcome{
			Success:    false,
			HTTPStatus: http.StatusInternalServerError,
			Message:    "결제 서비스 설정 오류입니다. 관리자에게 문의해주세요.",
			Error:      ErrSecretNotConfigured.Error(),
			OrderID:    orderID,
			Timestamp:  now,
		}
	}
	if payment == nil || payment.PaymentKey == "" {
		return &CancelOutcome{
			Success:    false,
			HTTPStatus: http.StatusBadRequest,
			Message:    "취소할 결제 정보를 찾을 수 없습니다.",
			Error:      ErrMissingPaymentKey.Error(),
			OrderID:    orderID,
			Timestamp:  now,
		}
	}
	if reason == "" {
		reason = defaultCancelReason
	}

	st := &cancelState{payment: payment, orderID: orderID, reason: reason}
	st.resolvedID = s.resolvePaymentID(ctx, payment, orderID)

	for _, strat := range s.strategies() {
		if !strat.eligible(st) {
			continue
		}
		resp, err := strat.run(ctx, st)
		if err != nil {
			s.logger.Warn("cancel strategy failed",
				"strategy", strat.name, "order_id", orderID, "err", err)
			continue
		}
		st.response = resp
		s.logger.Info("cancel strategy succeeded", "strategy", strat.name, "order_id", orderID)
		if s.audit != nil {
			s.audit.Record(ctx, payment.ID, orderID, strat.name, reason, true, resp)
		}
		return s.commit(ctx, st, strat.name)
	}

	return s.reportFailure(ctx, st)
}

func (s *CancelService) strategies() []cancelStrategy {
	return []cancelStrategy{
		{
			name:     "primary_retry",
			eligible: func(*cancelState) bool { return true },
			run:      s.runPrimary,
		},
		{
			// Retrying a 401 cannot succeed; only non-auth failures reach
			// the smart fallback.
			name:     "smart_cancel",
			eligible: func(st *cancelState) bool { return !IsUnauthorizedError(st.lastErr) },
			run:      s.runSmartCancel,
		},
		{
			// The stored paymentKey may have been corrupted upstream while
			// orderId was not. Only worth trying when the provider says it
			// does not know our resolved id and orderId itself is already
			// pay_-shaped.
			name: "order_id_as_payment_id",
			eligible: func(st *cancelState) bool {
				return IsNotFoundError(st.lastErr) && IsValidPortoneV2ID(st.orderID)
			},
			run: s.runOrderIDFallback,
		},
	}
}

// resolvePaymentID prefers the provider's own record over the locally
// stored key: search by orderId first, normalize only as a fallback.
func (s *CancelService) resolvePaymentID(ctx context.Context, payment *Payment, orderID string) string {
	if orderID != "" {
		res, err := s.client.SearchPayments(ctx, SearchParams{OrderID: orderID, Size: 1})
		if err == nil && len(res.Items) > 0 && res.Items[0].ID != "" {
			found := res.Items[0].ID
			if IsValidPortoneV2ID(found) {
				s.logger.Info("resolved payment id via order search", "order_id", orderID, "payment_id", found)
				return found
			}
			converted := ConvertToV2PaymentID(found)
			s.logger.Info("resolved payment id via order search (normalized)",
				"order_id", orderID, "raw", found, "payment_id", converted)
			return converted
		}
		if err != nil {
			s.logger.Warn("payment search failed, falling back to stored key", "order_id", orderID, "err", err)
		}
	}
	return ConvertToV2PaymentID(payment.PaymentKey)
}

func (s *CancelService) runPrimary(ctx context.Context, st *cancelState) (*CancelResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err := s.client.CancelPayment(ctx, CancelParams{
			PaymentID: st.resolvedID,
			Reason:    st.reason,
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		st.lastErr = err
		st.initialErr = err

		if IsUnauthorizedError(err) {
			s.logger.Error("cancel unauthorized, aborting retries", "order_id", st.orderID)
			break
		}
		if attempt < s.maxAttempts {
			s.logger.Warn("cancel attempt failed, retrying",
				"attempt", attempt, "order_id", st.orderID, "err", err)
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (s *CancelService) runSmartCancel(ctx context.Context, st *cancelState) (*CancelResponse, error) {
	resp, err := s.client.SmartCancel(ctx, st.resolvedID, st.orderID, st.reason)
	if err != nil {
		st.smartErr = err
		if st.lastErr == nil || !IsNotFoundError(st.lastErr) {
			st.lastErr = err
		}
		return nil, err
	}
	return resp, nil
}

func (s *CancelService) runOrderIDFallback(ctx context.Context, st *cancelState) (*CancelResponse, error) {
	s.logger.Info("trying order id as payment id", "order_id", st.orderID)
	resp, err := s.client.CancelPayment(ctx, CancelParams{
		PaymentID: st.orderID,
		Reason:    st.reason,
	})
	if err != nil {
		st.fallbackErr = err
		return nil, err
	}
	return resp, nil
}

// commit writes the confirmed cancellation: payment first, then order, in
// that fixed order, then responds with the refreshed records.
func (s *CancelService) commit(ctx context.Context, st *cancelState, strategyName string) *CancelOutcome {
	now := time.Now()

	err := s.store.UpdatePayment(ctx, st.payment.ID, map[string]any{
		"status":        StatusCancelled,
		"cancel_reason": st.reason,
		"cancelled_at":  now,
		"updated_at":    now,
	})
	if err == nil {
		err = s.store.UpdateOrderStatusByOrderID(ctx, st.orderID, orders.StatusCancelled)
	}
	if err != nil {
		// Provider-side cancel is confirmed but the local write failed.
		// Reported loudly for reconciliation; the provider remains the
		// source of truth either way.
		s.logger.Error("cancel confirmed by provider but local commit failed",
			"order_id", st.orderID, "err", err)
		return &CancelOutcome{
			Success:            false,
			PortoneCallSuccess: true,
			HTTPStatus:         http.StatusInternalServerError,
			Message:            "결제는 취소되었으나 내부 상태 갱신에 실패했습니다. 관리자에게 문의해주세요.",
			Error:              err.Error(),
			OrderID:            st.orderID,
			Strategy:           strategyName,
			Timestamp:          now,
		}
	}

	s.archiveResponse(ctx, st)

	if s.notifier != nil {
		if nerr := s.notifier.PaymentCancelled(ctx, st.payment, st.orderID, st.reason); nerr != nil {
			s.logger.Warn("cancel notification failed", "order_id", st.orderID, "err", nerr)
		}
	}

	refreshedPayment, _ := s.store.GetPaymentByOrderID(ctx, st.orderID)
	refreshedOrder, _ := s.store.GetOrderByOrderID(ctx, st.orderID)
	if refreshedPayment == nil {
		refreshedPayment = st.payment
	}

	return &CancelOutcome{
		Success:            true,
		PortoneCallSuccess: true,
		HTTPStatus:         http.StatusOK,
		Message:            "결제가 성공적으로 취소되었습니다.",
		Payment:            refreshedPayment,
		Order:              refreshedOrder,
		OrderID:            st.orderID,
		Strategy:           strategyName,
		Timestamp:          now,
	}
}

// reportFailure mirrors the root-cause provider status (502 default, 401
// pass-through) and embeds both the primary and fallback failure details.
// Local records are left completely untouched.
func (s *CancelService) reportFailure(ctx context.Context, st *cancelState) *CancelOutcome {
	now := time.Now()

	status := http.StatusBadGateway
	message := "결제 취소에 실패했습니다. 잠시 후 다시 시도해주세요."
	if IsUnauthorizedError(st.initialErr) || IsUnauthorizedError(st.lastErr) {
		status = http.StatusUnauthorized
		message = "결제 서비스 인증에 실패했습니다. 관리자에게 문의해주세요."
	}

	details := CancelDetails{
		InitialAttempt:     errString(st.initialErr),
		SmartCancelAttempt: errString(st.smartErr),
		OrderIDFallback:    errString(st.fallbackErr),
	}

	if s.audit != nil {
		s.audit.Record(ctx, st.payment.ID, st.orderID, "exhausted", st.reason, false, details)
	}

	return &CancelOutcome{
		Success:            false,
		PortoneCallSuccess: false,
		HTTPStatus:         status,
		Message:            message,
		Error:              errString(st.lastErr),
		Details:            details,
		Payment:            st.payment,
		OrderID:            st.orderID,
		Timestamp:          now,
	}
}

// archiveResponse stores the raw provider response for later reconciliation.
// Best-effort: failure here never affects the outcome.
func (s *CancelService) archiveResponse(ctx context.Context, st *cancelState) {
	if s.archive == nil || st.response == nil || len(st.response.Raw) == 0 {
		return
	}
	name := fmt.Sprintf("cancel-%s-%d.json", st.orderID, time.Now().UnixMilli())
	_, err := s.archive.Put(ctx, bytes.NewReader(st.response.Raw), storage.PutInput{
		Filename:    name,
		ContentType: "application/json",
		Size:        int64(len(st.response.Raw)),
	})
	if err != nil {
		s.logger.Warn("cancel response archive failed", "order_id", st.orderID, "err", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
