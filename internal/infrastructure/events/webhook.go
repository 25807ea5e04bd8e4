package events

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/watermill"
	wmhttp "github.com/ThreeDotsLabs/watermill-http/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// WebhookPath is the path, and the subscriber topic, the shop platform posts
// status changes to.
const WebhookPath = "/webhooks/order-status"

const (
	headerEventID       = "X-Event-Id"
	headerCorrelationID = "X-Correlation-Id"
	headerSecret        = "X-Webhook-Secret"
)

// Status change payloads are a few hundred bytes.
const maxWebhookBytes = 64 << 10

var (
	ErrWebhookUnauthorized = errors.New("webhook secret mismatch")
	ErrWebhookTooLarge     = errors.New("webhook body too large")
)

// NewWebhookSubscriber accepts lifecycle events pushed over HTTP. The caller
// must start its server with StartHTTPServer once the router is running.
// A non-empty secret must arrive in the X-Webhook-Secret header; without one
// addr should be a loopback address.
func NewWebhookSubscriber(addr, secret string, logger watermill.LoggerAdapter) (*wmhttp.Subscriber, error) {
	sub, err := wmhttp.NewSubscriber(addr, wmhttp.SubscriberConfig{
		UnmarshalMessageFunc: webhookUnmarshaler(secret),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("events: create webhook subscriber: %w", err)
	}
	return sub, nil
}

func webhookUnmarshaler(secret string) func(string, *http.Request) (*message.Message, error) {
	return func(topic string, req *http.Request) (*message.Message, error) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(req.Header.Get(headerSecret)), []byte(secret)) != 1 {
			return nil, ErrWebhookUnauthorized
		}
		return unmarshalWebhook(topic, req)
	}
}

func unmarshalWebhook(_ string, req *http.Request) (*message.Message, error) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read webhook body: %w", err)
	}
	if len(body) > maxWebhookBytes {
		return nil, ErrWebhookTooLarge
	}

	id := req.Header.Get(headerEventID)
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, body)

	correlation := req.Header.Get(headerCorrelationID)
	if correlation == "" {
		correlation = id
	}
	middleware.SetCorrelationID(correlation, msg)
	return msg, nil
}
