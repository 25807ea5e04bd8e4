package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// LifecyclePublisher writes order status transitions to the lifecycle topic.
type LifecyclePublisher struct {
	publisher message.Publisher
	topic     string
}

func NewLifecyclePublisher(publisher message.Publisher, topic string) *LifecyclePublisher {
	return &LifecyclePublisher{publisher: publisher, topic: topic}
}

func (p *LifecyclePublisher) PublishStatusChange(ctx context.Context, event domain.OrderStatusChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode status change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	middleware.SetCorrelationID(correlationID(ctx), msg)
	msg.Metadata.Set(MetadataOrderID, event.OrderID)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish status change for order %s: %w", event.OrderID, err)
	}
	return nil
}

// DecodeStatusChange reads a lifecycle message body.
func DecodeStatusChange(msg *message.Message) (domain.OrderStatusChanged, error) {
	var event domain.OrderStatusChanged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, fmt.Errorf("decode status change %s: %w", msg.UUID, err)
	}
	if event.OrderID == "" {
		return event, fmt.Errorf("decode status change %s: missing order_id", msg.UUID)
	}
	if event.ToStatus == "" {
		return event, fmt.Errorf("decode status change %s: missing to_status", msg.UUID)
	}
	return event, nil
}
