package enums

import "slices"

// DeliveryStatus is the fulfillment lifecycle shared by customer orders and
// seller sub-orders.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusWarehouse  DeliveryStatus = "warehouse"
	DeliveryStatusPlaced     DeliveryStatus = "placed"
	DeliveryStatusDispatched DeliveryStatus = "dispatched"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusCancelled  DeliveryStatus = "cancelled"
)

var deliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusProcessing,
	DeliveryStatusWarehouse,
	DeliveryStatusPlaced,
	DeliveryStatusDispatched,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

func (d DeliveryStatus) String() string { return string(d) }

func (d DeliveryStatus) IsValid() bool { return slices.Contains(deliveryStatuses, d) }

// IsTerminal reports whether no further fulfillment step can follow.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusCancelled || d == DeliveryStatusDelivered
}

// ParseDeliveryStatus accepts any casing and surrounding whitespace.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	return parse("delivery status", value, deliveryStatuses)
}
