package services

import (
	"context"
	"errors"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// Clock lets tests pin the timestamps written into order notes.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

const noteTimeLayout = "2006-01-02 15:04:05 MST"

// classifyProcessorFailure converts a processor failure into the component's
// domain error. Transport failures and outages become PROCESSOR_UNAVAILABLE;
// definitive rejections go through reject, carrying the processor's message.
func classifyProcessorFailure(err error, reject func(message string, err error) *domain.DomainError) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewProcessorUnavailableError(err)
	}

	procErr, ok := application.IsProcessorError(err)
	if !ok || procErr.Unavailable {
		return domain.NewProcessorUnavailableError(err)
	}

	message := procErr.Message
	if message == "" {
		message = "the payment processor rejected the request"
	}
	return reject(message, err)
}

// submitted detaches ctx for a processor mutation and the bookkeeping after
// it. Once a charge, refund or customer change is sent it runs to completion,
// bounded by the processor client's own timeout.
func submitted(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func chargeIdempotencyKey(orderID string) string {
	return "charge:" + orderID
}

// outcomeUnknown reports whether a classified charge failure leaves open the
// possibility that the processor took the money.
func outcomeUnknown(err error) bool {
	return domain.IsErrorCode(err, domain.ErrCodeProcessorUnavailable)
}

// failureMessage is the buyer-facing text of err.
func failureMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

func chargeMetadata(order *domain.Order) map[string]string {
	return map[string]string{
		"Order #":        order.Number,
		"Total Tax":      order.TotalTax.StringFixed(2),
		"Total Shipping": order.TotalShipping.StringFixed(2),
		"Customer #":     order.BuyerID,
		"Billing Email":  order.Billing.Email,
	}
}

func chargeShipping(order *domain.Order) *application.ShippingRequest {
	name := order.Shipping.FullName()
	if name == "" && order.Shipping.Address.Line1 == "" {
		return nil
	}
	return &application.ShippingRequest{
		Name:    name,
		Phone:   order.Billing.Phone,
		Address: order.Shipping.Address,
	}
}

func chargeDescription(cfg domain.PaymentConfiguration, order *domain.Order) string {
	if cfg.StoreName == "" {
		return "Order #" + order.Number
	}
	return cfg.StoreName + " Order #" + order.Number
}

// statementDescriptor is capped at the processor's 22 character limit.
func statementDescriptor(order *domain.Order) string {
	d := "Order#" + order.Number
	if len(d) > 22 {
		d = d[:22]
	}
	return d
}
