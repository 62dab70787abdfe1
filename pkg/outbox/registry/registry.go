// Package registry maps outbox event types to broker topics and payload
// schemas, and decodes stored rows before they are published.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/payloads"
)

// Topics names the broker destinations; the values depend on the transport.
type Topics struct {
	Orders  string
	Payouts string
}

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// ResolvedEvent is a row whose envelope and typed payload decoded cleanly.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		newPayload:    func() any { return new(T) },
	}
}

// NewEventRegistry routes order lifecycle events to topics.Orders and money
// movement events to topics.Payouts.
func NewEventRegistry(topics Topics) (*EventRegistry, error) {
	switch {
	case topics.Orders == "":
		return nil, errors.New("orders topic is required")
	case topics.Payouts == "":
		return nil, errors.New("payouts topic is required")
	}

	descriptors := []EventDescriptor{
		describe[payloads.OrderPlacedEvent](enums.EventOrderPlaced, enums.AggregateCustomerOrder, topics.Orders),
		describe[payloads.OrderPaidEvent](enums.EventOrderPaid, enums.AggregateCustomerOrder, topics.Orders),
		describe[payloads.OrderExpiredEvent](enums.EventOrderExpired, enums.AggregateCustomerOrder, topics.Orders),
		describe[payloads.LatePaymentReceivedEvent](enums.EventLatePaymentReceived, enums.AggregateCustomerOrder, topics.Orders),
		describe[payloads.OrderStatusChangedEvent](enums.EventOrderStatusChanged, enums.AggregateCustomerOrder, topics.Orders),
		describe[payloads.SellerOrderStatusChangedEvent](enums.EventSellerOrderStatusChange, enums.AggregateSellerOrder, topics.Orders),
		describe[payloads.WithdrawalRequestedEvent](enums.EventWithdrawalRequested, enums.AggregateWithdrawal, topics.Payouts),
		describe[payloads.WithdrawalConfirmedEvent](enums.EventWithdrawalConfirmed, enums.AggregateWithdrawal, topics.Payouts),
		describe[payloads.PayoutAccountActivatedEvent](enums.EventPayoutAccountActivated, enums.AggregateSeller, topics.Payouts),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics returns the distinct destinations, sorted.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, 2)
	for _, d := range r.entries {
		set[d.Topic] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for topic := range set {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the stored bytes will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("event %s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	env, err := outbox.Open(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.newPayload()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
