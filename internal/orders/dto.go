package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// PlaceOrderInput is a cart already grouped by seller.
type PlaceOrderInput struct {
	CustomerID   uuid.UUID
	ShippingInfo models.ShippingInfo
	Groups       []GroupInput
	TotalPrice   decimal.Decimal
	ShippingFee  decimal.Decimal
}

// GroupInput is one seller's portion of the cart. Price is the seller's
// commission-adjusted subtotal.
type GroupInput struct {
	SellerID uuid.UUID
	Price    decimal.Decimal
	Products []ProductInput
}

// ProductInput is one consumed cart line.
type ProductInput struct {
	CartItemID uuid.UUID
	Quantity   int
	Product    models.ProductSnapshot
}

// PlaceOrderResult carries the id of the new customer order.
type PlaceOrderResult struct {
	OrderID      uuid.UUID `json:"orderId"`
	PaymentDueAt time.Time `json:"paymentDueAt"`
}

// ConfirmPaymentResult reports whether the call changed anything.
type ConfirmPaymentResult struct {
	OrderID     uuid.UUID `json:"orderId"`
	AlreadyPaid bool      `json:"alreadyPaid"`
}

// DueOrder is an unpaid order whose payment window has closed.
type DueOrder struct {
	ID           uuid.UUID
	PaymentDueAt time.Time
}

// DueCursor resumes a due-order scan strictly after the given row, so rows
// that keep failing to expire do not pin the sweep to the first page.
type DueCursor struct {
	DueAt time.Time
	ID    uuid.UUID
}

// Next returns the cursor positioned on the last order of a page.
func (o DueOrder) Next() *DueCursor {
	return &DueCursor{DueAt: o.PaymentDueAt, ID: o.ID}
}

// LatePayment is a captured payment for an order that had already expired.
type LatePayment struct {
	OrderID         uuid.UUID
	PaymentIntentID string
	AmountCents     int64
	Currency        string
}

// CustomerOrderFilters narrow the customer order list. A nil status lists all.
type CustomerOrderFilters struct {
	DeliveryStatus *enums.DeliveryStatus
}

// CustomerOrderList wraps a page of customer orders plus the next cursor.
type CustomerOrderList struct {
	Orders     []models.CustomerOrder `json:"orders"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// SellerOrderList wraps a page of seller sub-orders plus the next cursor.
type SellerOrderList struct {
	Orders     []models.SellerOrder `json:"orders"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// Dashboard is the customer landing summary.
type Dashboard struct {
	RecentOrders    []models.CustomerOrder `json:"recentOrders"`
	TotalOrders     int64                  `json:"totalOrders"`
	PendingOrders   int64                  `json:"pendingOrders"`
	CancelledOrders int64                  `json:"cancelledOrders"`
}
