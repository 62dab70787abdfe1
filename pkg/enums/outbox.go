package enums

import "slices"

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateCustomerOrder OutboxAggregateType = "customer_order"
	AggregateSellerOrder   OutboxAggregateType = "seller_order"
	AggregateWithdrawal    OutboxAggregateType = "withdrawal"
	AggregateSeller        OutboxAggregateType = "seller"
)

var aggregateTypes = []OutboxAggregateType{
	AggregateCustomerOrder,
	AggregateSellerOrder,
	AggregateWithdrawal,
	AggregateSeller,
}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, aggregateTypes)
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on published messages.
type OutboxEventType string

const (
	EventOrderPlaced             OutboxEventType = "order_placed"
	EventOrderPaid               OutboxEventType = "order_paid"
	EventOrderExpired            OutboxEventType = "order_expired"
	EventOrderStatusChanged      OutboxEventType = "order_status_changed"
	EventSellerOrderStatusChange OutboxEventType = "seller_order_status_changed"
	EventWithdrawalRequested     OutboxEventType = "withdrawal_requested"
	EventWithdrawalConfirmed     OutboxEventType = "withdrawal_confirmed"
	EventPayoutAccountActivated  OutboxEventType = "payout_account_activated"
	EventLatePaymentReceived     OutboxEventType = "payment_received_for_cancelled_order"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderPaid,
	EventOrderExpired,
	EventOrderStatusChanged,
	EventSellerOrderStatusChange,
	EventWithdrawalRequested,
	EventWithdrawalConfirmed,
	EventPayoutAccountActivated,
	EventLatePaymentReceived,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, outboxEventTypes)
}
