package domain

import "time"

// OrderStatusChanged is delivered whenever the shop platform moves an order to a new status.
type OrderStatusChanged struct {
	OrderID    string      `json:"order_id"`
	FromStatus OrderStatus `json:"from_status,omitempty"`
	ToStatus   OrderStatus `json:"to_status"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type PaymentEventType string

const (
	EventChargeSucceeded  PaymentEventType = "charge.succeeded"
	EventChargeFailed     PaymentEventType = "charge.failed"
	EventCustomerDeferred PaymentEventType = "charge.deferred"
	EventRefundSucceeded  PaymentEventType = "refund.succeeded"
)

// PaymentEvent is published to downstream consumers after a processor-side outcome.
type PaymentEvent struct {
	Type        PaymentEventType `json:"type"`
	OrderID     string           `json:"order_id"`
	Reference   string           `json:"reference,omitempty"`
	AmountMinor int64            `json:"amount_minor,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	Message     string           `json:"message,omitempty"`
	OccurredAt  time.Time        `json:"occurred_at"`
}
