package payments

import "time"

const (
	StatusReady     = "READY"
	StatusDone      = "DONE"
	StatusCancelled = "CANCELLED"
)

// Payment is the local mirror of a provider-side transaction. The provider
// stays the source of truth for money movement: status here changes only
// after a confirmed provider response.
type Payment struct {
	ID          string  `gorm:"type:char(36);primaryKey" json:"id"`
	BidID       *string `gorm:"type:char(36);index:ix_payments_bid_id" json:"bidId,omitempty"`
	UserID      string  `gorm:"type:char(36);not null;index:ix_payments_user_id" json:"userId"`
	PaymentKey  string  `gorm:"type:varchar(64);not null" json:"paymentKey"`
	MerchantUID string  `gorm:"type:varchar(64);not null" json:"merchantId"`
	OrderID     string  `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_order_id" json:"orderId"`
	OrderName   string  `gorm:"type:varchar(255);not null" json:"orderName"`
	Amount      string  `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status      string  `gorm:"type:varchar(16);not null" json:"status"`
	Method      string  `gorm:"type:varchar(32);not null" json:"method"`

	CancelReason *string    `gorm:"type:varchar(255)" json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `gorm:"type:datetime(3)" json:"cancelledAt,omitempty"`
	CreatedAt    time.Time  `gorm:"type:datetime(3);not null" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"type:datetime(3);not null" json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }

// NormalizeProviderStatus maps the wider vocabulary PortOne reports
// (PAID, VIRTUAL_ACCOUNT_ISSUED, PARTIAL_CANCELLED, ...) onto the three
// states the rest of the app reasons about.
func NormalizeProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "PAID", "DONE", "CONFIRMED":
		return StatusDone
	case "CANCELLED", "PARTIAL_CANCELLED", "REFUNDED":
		return StatusCancelled
	default:
		return StatusReady
	}
}
