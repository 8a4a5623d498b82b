package orders

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	if err := r.db.WithContext(ctx).First(&o, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) Create(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// UpdateStatusByOrderID flips the order status. Callers gate this behind a
// confirmed provider response; the repo does not re-check.
func (r *Repo) UpdateStatusByOrderID(ctx context.Context, orderID, status string) error {
	now := time.Now()
	updates := map[string]any{"status": status, "updated_at": now}
	if status == StatusPaid {
		updates["paid_at"] = &now
	}
	return r.db.WithContext(ctx).Model(&Order{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}
