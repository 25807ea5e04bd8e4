package events

import (
	"fmt"

	"github.com/DanielPopoola/ficmart-checkout/internal/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// PubSub is the transport carrying order lifecycle events.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// NewPubSub builds the lifecycle transport. The gochannel transport only
// delivers within this process and drops messages published before the
// listener subscribes.
func NewPubSub(cfg config.EventsConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	switch cfg.Transport {
	case "gochannel":
		ch := gochannel.NewGoChannel(gochannel.Config{}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch}, nil

	case "amqp":
		if cfg.AMQPURI == "" {
			return nil, fmt.Errorf("events: amqp transport requires an amqp_uri")
		}
		amqpConfig := amqp.NewDurableQueueConfig(cfg.AMQPURI)

		publisher, err := amqp.NewPublisher(amqpConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("events: create amqp publisher: %w", err)
		}
		subscriber, err := amqp.NewSubscriber(amqpConfig, logger)
		if err != nil {
			_ = publisher.Close()
			return nil, fmt.Errorf("events: create amqp subscriber: %w", err)
		}
		return &PubSub{Publisher: publisher, Subscriber: subscriber}, nil

	default:
		return nil, fmt.Errorf("events: unknown transport %q", cfg.Transport)
	}
}

func (p *PubSub) Close() error {
	pubErr := p.Publisher.Close()
	// gochannel is both ends; closing it twice is harmless.
	subErr := p.Subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}
