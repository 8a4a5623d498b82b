package bids

import "time"

const (
	StatusOpen      = "open"
	StatusAccepted  = "accepted"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Bid is a buyer/vendor price negotiation for a plant listing. The legacy
// payment return flow verifies the paid amount against AgreedPrice before
// the payment is recorded as DONE.
type Bid struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      string    `gorm:"type:char(36);not null;index:ix_bids_user_id" json:"userId"`
	VendorID    string    `gorm:"type:char(36);not null;index:ix_bids_vendor_id" json:"vendorId"`
	PlantName   string    `gorm:"type:varchar(255);not null" json:"plantName"`
	AgreedPrice string    `gorm:"type:decimal(12,2);not null" json:"agreedPrice"`
	Status      string    `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt   time.Time `gorm:"type:datetime(3);not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"type:datetime(3);not null" json:"updatedAt"`
}

func (Bid) TableName() string { return "bids" }
