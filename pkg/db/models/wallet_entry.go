package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SellerWalletEntry is an immutable settlement credit for one seller.
type SellerWalletEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID  uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null" json:"orderId"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Month     int             `gorm:"column:month;not null" json:"month"`
	Year      int             `gorm:"column:year;not null" json:"year"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (e *SellerWalletEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// ShopWalletEntry is an immutable settlement credit on the platform ledger.
type ShopWalletEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null" json:"orderId"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Month     int             `gorm:"column:month;not null" json:"month"`
	Year      int             `gorm:"column:year;not null" json:"year"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (e *ShopWalletEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
