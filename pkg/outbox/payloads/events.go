package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// OrderPlacedEvent announces a new unpaid order and its seller split.
type OrderPlacedEvent struct {
	OrderID        uuid.UUID       `json:"orderId"`
	CustomerID     uuid.UUID       `json:"customerId"`
	SellerOrderIDs []uuid.UUID     `json:"sellerOrderIds"`
	Price          decimal.Decimal `json:"price"`
	ShippingFee    decimal.Decimal `json:"shippingFee"`
	PaymentDueAt   time.Time       `json:"paymentDueAt"`
}

// OrderPaidEvent is emitted once payment is confirmed and wallets are settled.
type OrderPaidEvent struct {
	OrderID    uuid.UUID       `json:"orderId"`
	CustomerID uuid.UUID       `json:"customerId"`
	Price      decimal.Decimal `json:"price"`
	PaidAt     time.Time       `json:"paidAt"`
}

// OrderExpiredEvent is emitted when an unpaid order passes its payment window.
type OrderExpiredEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
	ExpiredAt  time.Time `json:"expiredAt"`
}

// LatePaymentReceivedEvent is emitted when the provider captures payment for
// an order that already expired. Consumers refund or reinstate it.
type LatePaymentReceivedEvent struct {
	OrderID         uuid.UUID `json:"orderId"`
	CustomerID      uuid.UUID `json:"customerId"`
	PaymentIntentID string    `json:"paymentIntentId"`
	AmountCents     int64     `json:"amountCents"`
	Currency        string    `json:"currency"`
	ReceivedAt      time.Time `json:"receivedAt"`
}

// OrderStatusChangedEvent reports a delivery status override on an order.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID            `json:"orderId"`
	From    enums.DeliveryStatus `json:"from"`
	To      enums.DeliveryStatus `json:"to"`
}

// SellerOrderStatusChangedEvent reports a seller-side delivery status update.
type SellerOrderStatusChangedEvent struct {
	SellerOrderID uuid.UUID            `json:"sellerOrderId"`
	OrderID       uuid.UUID            `json:"orderId"`
	SellerID      uuid.UUID            `json:"sellerId"`
	From          enums.DeliveryStatus `json:"from"`
	To            enums.DeliveryStatus `json:"to"`
}

// WithdrawalRequestedEvent is emitted for each new pending withdrawal.
type WithdrawalRequestedEvent struct {
	WithdrawalID uuid.UUID       `json:"withdrawalId"`
	SellerID     uuid.UUID       `json:"sellerId"`
	Amount       decimal.Decimal `json:"amount"`
}

// WithdrawalConfirmedEvent is emitted after the payout transfer succeeded.
type WithdrawalConfirmedEvent struct {
	WithdrawalID uuid.UUID       `json:"withdrawalId"`
	SellerID     uuid.UUID       `json:"sellerId"`
	Amount       decimal.Decimal `json:"amount"`
	TransferID   string          `json:"transferId"`
}

// PayoutAccountActivatedEvent marks a seller as able to receive payouts.
type PayoutAccountActivatedEvent struct {
	SellerID        uuid.UUID `json:"sellerId"`
	StripeAccountID string    `json:"stripeAccountId"`
}
