package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/kafka"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			orderPlacedRow(t, "event-one"),
			orderPlacedRow(t, "event-two"),
		},
	}
	tr := &fakeTransport{errs: []error{errors.New("transient"), nil}}
	service := newTestService(t, repo, tr, &fakeRegistry{resolved: orderResolved()}, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServicePublishesAttributesAndKey(t *testing.T) {
	row := orderPlacedRow(t, "attrs")
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	tr := &fakeTransport{}
	service := newTestService(t, repo, tr, &fakeRegistry{resolved: orderResolved()}, &fakeDLQRepo{}, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected one publish, got %d", len(tr.sent))
	}
	sent := tr.sent[0]
	if sent.topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", sent.topic)
	}
	if sent.msg.Key != row.AggregateID.String() {
		t.Fatalf("expected aggregate id as key, got %q", sent.msg.Key)
	}
	if sent.msg.Attributes["event_type"] != string(enums.EventOrderPlaced) {
		t.Fatalf("unexpected event_type attribute %q", sent.msg.Attributes["event_type"])
	}
	if !bytes.Equal(sent.msg.Data, row.Payload) {
		t.Fatalf("payload should be forwarded unchanged")
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := orderPlacedRow(t, "nonretryable")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakeTransport{}, reg, dlqRepo, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestServiceMissingPublisherIsTerminal(t *testing.T) {
	event := orderPlacedRow(t, "no-publisher")
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlqRepo := &fakeDLQRepo{}
	tr := &fakeTransport{errs: []error{errPublisherMissing}}
	service := newTestService(t, repo, tr, &fakeRegistry{resolved: orderResolved()}, dlqRepo, nil)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if len(dlqRepo.entries) != 1 || dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlqRepo.entries)
	}
	if len(repo.published) != 0 {
		t.Fatalf("row must not be marked published")
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := orderPlacedRow(t, "max-attempts")
	event.AttemptCount = 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	tr := &fakeTransport{errs: []error{errors.New("transient")}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, tr, &fakeRegistry{resolved: orderResolved()}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestKafkaTransportMapsMessage(t *testing.T) {
	client := &fakeKafka{}
	tr := newKafkaTransport(client)

	err := tr.Publish(context.Background(), "easyshop.orders", outboundMessage{
		Key:        "order-1",
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": "order_paid"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(client.msgs) != 1 {
		t.Fatalf("expected one kafka message, got %d", len(client.msgs))
	}
	got := client.msgs[0]
	if got.Topic != "easyshop.orders" || string(got.Key) != "order-1" || got.Headers["event_type"] != "order_paid" {
		t.Fatalf("unexpected kafka message %+v", got)
	}
}

func TestNewServiceAppliesFallbacks(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeTransport{}, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{})
	if service.batchSize != fallbackBatch || service.maxAttempts != fallbackAttempts {
		t.Fatalf("unexpected fallbacks batch=%d attempts=%d", service.batchSize, service.maxAttempts)
	}
	if service.poll != fallbackPoll || service.timeout != fallbackTimeout || service.backoffCeil != fallbackBackoffCeil {
		t.Fatalf("unexpected durations poll=%v timeout=%v ceil=%v", service.poll, service.timeout, service.backoffCeil)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakeTransport{}, &fakeRegistry{}, &fakeDLQRepo{}, &config.OutboxConfig{
		PollIntervalMS: 100,
		MaxBackoff:     time.Second,
	})
	b := service.newBackoff()
	for i := 0; i < 20; i++ {
		d, stop := b.Next()
		if stop {
			t.Fatal("backoff should never stop")
		}
		if d > time.Second {
			t.Fatalf("attempt %d exceeded cap: %v", i, d)
		}
	}
}

func TestServiceRecordsOutcomeMetrics(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{orderPlacedRow(t, "ok"), orderPlacedRow(t, "retry")}}
	tr := &fakeTransport{errs: []error{nil, errors.New("broker down")}}
	service := newTestService(t, repo, tr, &fakeRegistry{resolved: orderResolved()}, &fakeDLQRepo{}, nil)
	reg := prometheus.NewRegistry()
	service.metrics = metrics.NewOutboxMetrics(reg)

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if got := outboxCount(t, reg, metrics.OutboxPublished); got != 1 {
		t.Fatalf("expected one published, got %v", got)
	}
	if got := outboxCount(t, reg, metrics.OutboxRetry); got != 1 {
		t.Fatalf("expected one retry, got %v", got)
	}
}

func outboxCount(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "outbox_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("no outbox_events_total sample for %s", result)
	return 0
}

func newTestService(t *testing.T, repo outboxRepository, tr transport, reg registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: outboxCfg},
		Logger:        logg,
		DB:            &fakeDB{},
		Transport:     tr,
		Repository:    repo,
		Registry:      reg,
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func orderPlacedRow(tb testing.TB, eventID string) models.OutboxEvent {
	tb.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateCustomerOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(tb, eventID),
	}
}

func orderResolved() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "orders-topic",
			AggregateType: enums.AggregateCustomerOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderPlacedEvent{},
	}
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	topic string
	msg   outboundMessage
}

type fakeTransport struct {
	errs []error
	sent []sentMessage
}

func (f *fakeTransport) Name() string               { return "fake" }
func (f *fakeTransport) Ping(context.Context) error { return nil }

func (f *fakeTransport) Publish(_ context.Context, topic string, msg outboundMessage) error {
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if err == nil {
		f.sent = append(f.sent, sentMessage{topic: topic, msg: msg})
	}
	return err
}

type fakeKafka struct {
	msgs []kafka.Message
}

func (f *fakeKafka) Ping(context.Context) error { return nil }

func (f *fakeKafka) Publish(_ context.Context, msg kafka.Message) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
