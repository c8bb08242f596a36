// Package kafka publishes copy notifications for downstream consumers
// (alerting, reporting). Delivery is at-most-once: the copy pipeline never
// fails because a notification did not go out.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/finbridge/payout-bridge/internal/bridge/domain"
	"github.com/finbridge/payout-bridge/pkg/tracing"
)

const (
	EventInvoiceCreated = "InvoiceCreated"
	EventPayoutCopied   = "PayoutCopied"
)

// Writer is the subset of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
}

type Publisher struct {
	log    *slog.Logger
	writer Writer
	topic  string
}

func NewPublisher(log *slog.Logger, writer Writer, topic string) *Publisher {
	return &Publisher{log: log, writer: writer, topic: topic}
}

func (p *Publisher) PublishInvoiceCreated(ctx context.Context, event domain.InvoiceCreated) error {
	return p.publish(ctx, EventInvoiceCreated, event.InvoiceNumber, event)
}

func (p *Publisher) PublishPayoutCopied(ctx context.Context, event domain.PayoutCopied) error {
	return p.publish(ctx, EventPayoutCopied, fmt.Sprint(event.PayoutID), event)
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(eventType)}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("event publish failed", "type", eventType, "key", key, "err", err)
		return err
	}
	p.log.Info("event published", "type", eventType, "key", key)
	return nil
}
