package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CancelAttempt is an append-only audit row written for each terminal
// cancellation outcome (success or failure). It never feeds back into the
// payment state machine; operators read it when reconciling against the
// provider ledger.
type CancelAttempt struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	PaymentID   string         `gorm:"type:char(36);not null;index:ix_cancel_attempts_payment_id"`
	OrderID     string         `gorm:"type:varchar(64);not null;index:ix_cancel_attempts_order_id"`
	Strategy    string         `gorm:"type:varchar(32);not null"`
	Succeeded   bool           `gorm:"not null"`
	Reason      string         `gorm:"type:varchar(255);not null"`
	DetailJSON  datatypes.JSON `gorm:"type:json"`
	CreatedAt   time.Time      `gorm:"type:datetime(3);not null"`
}

func (CancelAttempt) TableName() string { return "cancel_attempts" }

type AuditLog struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewAuditLog(db *gorm.DB, logger *slog.Logger) *AuditLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLog{db: db, logger: logger}
}

// Record is best-effort: a failed audit write is logged, never surfaced,
// so it cannot turn a confirmed provider cancellation into an error.
func (a *AuditLog) Record(ctx context.Context, paymentID, orderID, strategy, reason string, succeeded bool, detail any) {
	if a == nil || a.db == nil {
		return
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		payload = []byte(`{}`)
	}

	row := CancelAttempt{
		ID:         uuid.NewString(),
		PaymentID:  paymentID,
		OrderID:    orderID,
		Strategy:   strategy,
		Succeeded:  succeeded,
		Reason:     reason,
		DetailJSON: datatypes.JSON(payload),
		CreatedAt:  time.Now(),
	}
	if err := a.db.WithContext(ctx).Create(&row).Error; err != nil {
		a.logger.Warn("cancel attempt audit write failed", "order_id", orderID, "err", err)
	}
}
