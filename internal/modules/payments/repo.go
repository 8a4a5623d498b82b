package payments

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plantbid.kr/app/internal/modules/bids"
	"plantbid.kr/app/internal/modules/orders"
)

// Store is the narrow slice of persistence the payment subsystem touches.
// The cancellation orchestrator writes through it at most once per request,
// and only after a confirmed provider success.
type Store interface {
	GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error)
	CreatePayment(ctx context.Context, p *Payment) error
	UpdatePayment(ctx context.Context, id string, updates map[string]any) error
	UpdateOrderStatusByOrderID(ctx context.Context, orderID, status string) error
	GetOrderByOrderID(ctx context.Context, orderID string) (*orders.Order, error)
	GetBidByID(ctx context.Context, id string) (*bids.Bid, error)
	UpdateBidStatus(ctx context.Context, id, status string) error
}

type GormStore struct {
	db     *gorm.DB
	orders *orders.Repo
	bids   *bids.Repo
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, orders: orders.NewRepo(db), bids: bids.NewRepo(db)}
}

func (s *GormStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) CreatePayment(ctx context.Context, p *Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// UpdatePayment applies the given column updates under a row lock so a
// concurrent webhook and an admin cancel cannot interleave half-writes.
func (s *GormStore) UpdatePayment(ctx context.Context, id string, updates map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Payment
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		if _, ok := updates["updated_at"]; !ok {
			updates["updated_at"] = time.Now()
		}
		return tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", id).
			Updates(updates).Error
	})
}

func (s *GormStore) UpdateOrderStatusByOrderID(ctx context.Context, orderID, status string) error {
	return s.orders.UpdateStatusByOrderID(ctx, orderID, status)
}

func (s *GormStore) GetOrderByOrderID(ctx context.Context, orderID string) (*orders.Order, error) {
	return s.orders.GetByOrderID(ctx, orderID)
}

func (s *GormStore) GetBidByID(ctx context.Context, id string) (*bids.Bid, error) {
	return s.bids.GetByID(ctx, id)
}

func (s *GormStore) UpdateBidStatus(ctx context.Context, id, status string) error {
	return s.bids.UpdateStatus(ctx, id, status)
}
