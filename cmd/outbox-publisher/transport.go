package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/easyshop-backend/pkg/kafka"
)

// outboundMessage is the broker-neutral form of one outbox row.
type outboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// transport delivers a message and returns only once the broker has
// acknowledged it.
type transport interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg outboundMessage) error
}

var errPublisherMissing = errors.New("publisher not configured")

type pubSubPublisherSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type pubSubTransport struct {
	client pubSubPublisherSource
}

func newPubSubTransport(client pubSubPublisherSource) *pubSubTransport {
	return &pubSubTransport{client: client}
}

func (t *pubSubTransport) Name() string { return "pubsub" }

func (t *pubSubTransport) Ping(ctx context.Context) error { return t.client.Ping(ctx) }

func (t *pubSubTransport) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	pub := t.client.Publisher(topic)
	if pub == nil {
		return errPublisherMissing
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	_, err := result.Get(ctx)
	return err
}

type kafkaPublisher interface {
	Ping(context.Context) error
	Publish(context.Context, kafka.Message) error
}

type kafkaTransport struct {
	client kafkaPublisher
}

func newKafkaTransport(client kafkaPublisher) *kafkaTransport {
	return &kafkaTransport{client: client}
}

func (t *kafkaTransport) Name() string { return "kafka" }

func (t *kafkaTransport) Ping(ctx context.Context) error { return t.client.Ping(ctx) }

// Publish keys records by aggregate so one order's events stay on one
// partition.
func (t *kafkaTransport) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	return t.client.Publish(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: msg.Attributes,
	})
}
