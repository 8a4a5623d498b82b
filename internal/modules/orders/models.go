package orders

import "time"

const (
	StatusCreated   = "created"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Order correlates to a payment by OrderID (the merchant-defined order
// identifier). Its status moves to cancelled only in lockstep with a
// provider-confirmed payment cancellation, never independently.
type Order struct {
	ID          string     `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID     string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_orders_order_id" json:"orderId"`
	UserID      string     `gorm:"type:char(36);not null;index:ix_orders_user_id" json:"userId"`
	TotalAmount string     `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	Status      string     `gorm:"type:varchar(16);not null" json:"status"`
	PaidAt      *time.Time `gorm:"type:datetime(3)" json:"paidAt,omitempty"`
	CreatedAt   time.Time  `gorm:"type:datetime(3);not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"type:datetime(3);not null" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }
