package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plantbid.kr/app/internal/modules/bids"
	"plantbid.kr/app/internal/modules/orders"
)

// PaymentEvent dedupes provider webhooks: unique(provider, event_id) makes
// redelivery a no-op 200 instead of a double state transition.
type PaymentEvent struct {
	ID           string         `gorm:"type:char(36);primaryKey"`
	Provider     string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	EventID      string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType    string         `gorm:"type:varchar(64);not null"`
	PayloadJSON  datatypes.JSON `gorm:"type:json;not null"`
	ReceivedAt   time.Time      `gorm:"type:datetime(3);not null"`
	ProcessedAt  *time.Time     `gorm:"type:datetime(3)"`
	ProcessError *string        `gorm:"type:varchar(255)"`
}

func (PaymentEvent) TableName() string { return "payment_events" }

type PortoneWebhook struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		PaymentID     string `json:"paymentId"`
		TransactionID string `json:"transactionId"`
	} `json:"data"`
}

type WebhookService struct {
	db       *gorm.DB
	client   *PortOneClient
	notifier Notifier
	logger   *slog.Logger
}

func NewWebhookService(db *gorm.DB, client *PortOneClient) *WebhookService {
	return &WebhookService{db: db, client: client, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(l *slog.Logger) { s.logger = l }

// SetNotifier wires customer mail on confirmed payments (optional).
func (s *WebhookService) SetNotifier(n Notifier) { s.notifier = n }

// HandlePortone processes a PortOne transaction webhook. The payload is
// never trusted on its own: the live payment is re-fetched from the
// provider and only its confirmed status drives the local transition.
// Returning an error makes the route answer 500 so the provider retries.
func (s *WebhookService) HandlePortone(ctx context.Context, hook PortoneWebhook, rawBody []byte) error {
	if hook.Data.PaymentID == "" {
		return errors.New("webhook missing payment id")
	}

	eventID := hook.Data.TransactionID
	if eventID == "" {
		eventID = hook.Data.PaymentID + ":" + hook.Type
	}

	payload, _ := json.RawMessage(rawBody).MarshalJSON()

	var confirmed *Payment
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		pe := PaymentEvent{
			ID:          uuid.NewString(),
			Provider:    "portone",
			EventID:     eventID,
			EventType:   hook.Type,
			PayloadJSON: datatypes.JSON(payload),
			ReceivedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&pe).Error; err != nil {
			if isDup(err) {
				s.logger.Info("webhook deduplicated", "event_id", eventID, "type", hook.Type)
				return nil
			}
			return err
		}

		done, applyErr := s.applyTransaction(ctx, tx, hook)
		confirmed = done
		if applyErr != nil {
			msg := truncate(applyErr.Error(), 250)
			if err := tx.WithContext(ctx).Model(&PaymentEvent{}).
				Where("id = ?", pe.ID).
				Updates(map[string]any{"process_error": msg}).Error; err != nil {
				return err
			}
			s.logger.Error("webhook apply failed", "event_id", eventID, "type", hook.Type, "err", msg)
			return applyErr
		}

		processed := now
		return tx.WithContext(ctx).Model(&PaymentEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"processed_at": &processed, "process_error": nil}).Error
	})
	if txErr != nil {
		return txErr
	}

	if confirmed != nil && s.notifier != nil {
		if nerr := s.notifier.PaymentCompleted(ctx, confirmed); nerr != nil {
			s.logger.Warn("payment completion notification failed",
				"order_id", confirmed.OrderID, "err", nerr)
		}
	}
	return nil
}

// applyTransaction returns the payment when it actually transitioned to
// DONE; nil on the idempotent no-op paths.
func (s *WebhookService) applyTransaction(ctx context.Context, tx *gorm.DB, hook PortoneWebhook) (*Payment, error) {
	provPay, err := s.client.GetPayment(ctx, hook.Data.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("verify against provider: %w", err)
	}
	if NormalizeProviderStatus(provPay.Status) != StatusDone {
		s.logger.Info("webhook ignored, provider status not done",
			"payment_id", hook.Data.PaymentID, "status", provPay.Status)
		return nil, nil
	}

	var p Payment
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "payment_key = ?", hook.Data.PaymentID).Error; err != nil {
		return nil, fmt.Errorf("local payment lookup: %w", err)
	}

	// idempotent: DONE stays DONE, CANCELLED is terminal
	if p.Status != StatusReady {
		return nil, nil
	}

	// Amount column is a decimal string ("25000" or "25000.00" depending on
	// driver round-trip), so compare numerically.
	if want, perr := strconv.ParseFloat(p.Amount, 64); perr == nil && float64(provPay.Amount.Total) != want {
		return nil, fmt.Errorf("%w: provider=%d local=%s", ErrAmountMismatch, provPay.Amount.Total, p.Amount)
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":     StatusDone,
			"method":     provPay.Method.Type,
			"updated_at": now,
		}).Error; err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&orders.Order{}).
		Where("order_id = ? AND status = ?", p.OrderID, orders.StatusCreated).
		Updates(map[string]any{"status": orders.StatusPaid, "paid_at": &now, "updated_at": now}).Error; err != nil {
		return nil, err
	}

	if p.BidID != nil {
		if err := tx.WithContext(ctx).Model(&bids.Bid{}).
			Where("id = ?", *p.BidID).
			Updates(map[string]any{"status": bids.StatusPaid, "updated_at": now}).Error; err != nil {
			return nil, err
		}
	}

	p.Status = StatusDone
	p.Method = provPay.Method.Type
	return &p, nil
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
