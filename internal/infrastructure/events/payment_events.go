package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Publish runs inline on the request path.
const kafkaBatchTimeout = 10 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPaymentPublisher emits payment events keyed by order, so every event
// for one order lands on the same partition.
type KafkaPaymentPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPaymentPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPaymentPublisher {
	return &KafkaPaymentPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           kafkaBatchTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (p *KafkaPaymentPublisher) Publish(ctx context.Context, event domain.PaymentEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if id := CorrelationIDFrom(ctx); id != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(id)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish payment event",
			"order_id", event.OrderID,
			"type", event.Type,
			"error", err)
		return fmt.Errorf("publish payment event: %w", err)
	}
	return nil
}

func (p *KafkaPaymentPublisher) Close() error {
	return p.writer.Close()
}

// LogPaymentPublisher stands in when no broker is configured.
type LogPaymentPublisher struct {
	logger *slog.Logger
}

func NewLogPaymentPublisher(logger *slog.Logger) *LogPaymentPublisher {
	return &LogPaymentPublisher{logger: logger}
}

func (p *LogPaymentPublisher) Publish(_ context.Context, event domain.PaymentEvent) error {
	p.logger.Info("payment event",
		"type", event.Type,
		"order_id", event.OrderID,
		"reference", event.Reference,
		"amount_minor", event.AmountMinor,
		"currency", event.Currency)
	return nil
}

func (p *LogPaymentPublisher) Close() error { return nil }
