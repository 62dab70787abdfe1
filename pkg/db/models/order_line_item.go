package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductSnapshot freezes the product as it looked at checkout.
type ProductSnapshot struct {
	ProductID uuid.UUID       `json:"productId"`
	SellerID  uuid.UUID       `json:"sellerId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug,omitempty"`
	Brand     string          `json:"brand,omitempty"`
	ShopName  string          `json:"shopName,omitempty"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Discount  int             `json:"discount"`
}

// OrderLineItem belongs to both the customer order and the seller sub-order it
// was split into.
type OrderLineItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	SellerOrderID uuid.UUID       `gorm:"column:seller_order_id;type:uuid;not null;index" json:"sellerOrderId"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"productId"`
	SellerID      uuid.UUID       `gorm:"column:seller_id;type:uuid;not null" json:"sellerId"`
	Quantity      int             `gorm:"column:quantity;not null" json:"quantity"`
	Snapshot      ProductSnapshot `gorm:"column:snapshot;type:jsonb;serializer:json;not null" json:"snapshot"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (l *OrderLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
