package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// SellerOrder is one seller's share of a customer order. Price is the
// seller's commission-adjusted subtotal.
type SellerOrder struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index" json:"orderId"`
	SellerID       uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	Price          decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	PaymentStatus  enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'unpaid'" json:"paymentStatus"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'pending'" json:"deliveryStatus"`
	ShippingInfo   string               `gorm:"column:shipping_info;not null" json:"shippingInfo"`
	LineItems      []OrderLineItem      `gorm:"foreignKey:SellerOrderID" json:"lineItems,omitempty"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *SellerOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
