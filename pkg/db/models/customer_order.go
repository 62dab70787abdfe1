package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// ShippingInfo is the customer-supplied delivery address.
type ShippingInfo struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Post     string `json:"post,omitempty"`
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
	Area     string `json:"area,omitempty"`
}

// CustomerOrder is the customer-facing order created at checkout.
// Price = items total + ShippingFee; Commission is the platform cut netted
// out of the seller sub-order prices.
type CustomerOrder struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID     uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index" json:"customerId"`
	ShippingInfo   ShippingInfo         `gorm:"column:shipping_info;type:jsonb;serializer:json;not null" json:"shippingInfo"`
	Price          decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	ShippingFee    decimal.Decimal      `gorm:"column:shipping_fee;type:numeric(12,2);not null" json:"shippingFee"`
	Commission     decimal.Decimal      `gorm:"column:commission;type:numeric(12,2);not null" json:"commission"`
	PaymentStatus  enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'unpaid'" json:"paymentStatus"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'pending'" json:"deliveryStatus"`
	PaymentDueAt   *time.Time           `gorm:"column:payment_due_at" json:"paymentDueAt"`
	PaidAt         *time.Time           `gorm:"column:paid_at" json:"paidAt"`
	LineItems      []OrderLineItem      `gorm:"foreignKey:OrderID" json:"lineItems,omitempty"`
	SellerOrders   []SellerOrder        `gorm:"foreignKey:OrderID" json:"sellerOrders,omitempty"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (o *CustomerOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
