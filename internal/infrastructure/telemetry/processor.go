package telemetry

import (
	"context"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedProvider hands out processors that record a span and metrics per call.
type InstrumentedProvider struct {
	next    application.ProcessorProvider
	metrics *Metrics
}

func NewInstrumentedProvider(next application.ProcessorProvider, metrics *Metrics) *InstrumentedProvider {
	return &InstrumentedProvider{next: next, metrics: metrics}
}

func (p *InstrumentedProvider) ForConfig(cfg domain.PaymentConfiguration) application.Processor {
	return &InstrumentedProcessor{
		next:    p.next.ForConfig(cfg),
		metrics: p.metrics,
		tracer:  otel.Tracer(instrumentationName),
	}
}

type InstrumentedProcessor struct {
	next    application.Processor
	metrics *Metrics
	tracer  trace.Tracer
}

func (p *InstrumentedProcessor) observe(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := p.tracer.Start(ctx, "processor."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	start := time.Now()

	return ctx, func(err error) {
		p.metrics.ProcessorDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		p.metrics.ProcessorCalls.WithLabelValues(operation, outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if procErr, ok := application.IsProcessorError(err); ok && !procErr.Unavailable {
		return "rejected"
	}
	return "unavailable"
}

func (p *InstrumentedProcessor) CreateToken(ctx context.Context, req application.TokenRequest) (*domain.Token, error) {
	ctx, done := p.observe(ctx, "create_token")
	token, err := p.next.CreateToken(ctx, req)
	done(err)
	return token, err
}

func (p *InstrumentedProcessor) CreateCustomer(ctx context.Context, req application.CustomerRequest) (*application.ProcessorCustomer, error) {
	ctx, done := p.observe(ctx, "create_customer")
	customer, err := p.next.CreateCustomer(ctx, req)
	done(err)
	return customer, err
}

func (p *InstrumentedProcessor) GetCustomer(ctx context.Context, customerID string) (*application.ProcessorCustomer, error) {
	ctx, done := p.observe(ctx, "get_customer", attribute.String("customer.id", customerID))
	customer, err := p.next.GetCustomer(ctx, customerID)
	done(err)
	return customer, err
}

func (p *InstrumentedProcessor) UpdateCustomerSource(ctx context.Context, customerID, tokenID string) (*application.ProcessorCustomer, error) {
	ctx, done := p.observe(ctx, "update_customer_source", attribute.String("customer.id", customerID))
	customer, err := p.next.UpdateCustomerSource(ctx, customerID, tokenID)
	done(err)
	return customer, err
}

func (p *InstrumentedProcessor) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ProcessorCharge, error) {
	ctx, done := p.observe(ctx, "create_charge",
		attribute.Int64("charge.amount_minor", req.AmountMinor),
		attribute.String("charge.currency", req.Currency),
		attribute.Bool("charge.capture", req.Capture),
	)
	charge, err := p.next.CreateCharge(ctx, req)
	done(err)
	return charge, err
}

func (p *InstrumentedProcessor) GetCharge(ctx context.Context, chargeID string) (*application.ProcessorCharge, error) {
	ctx, done := p.observe(ctx, "get_charge", attribute.String("charge.id", chargeID))
	charge, err := p.next.GetCharge(ctx, chargeID)
	done(err)
	return charge, err
}

func (p *InstrumentedProcessor) CreateRefund(ctx context.Context, req application.RefundRequest) (*application.ProcessorRefund, error) {
	ctx, done := p.observe(ctx, "create_refund",
		attribute.String("charge.id", req.ChargeID),
		attribute.Int64("refund.amount_minor", req.AmountMinor),
	)
	refund, err := p.next.CreateRefund(ctx, req)
	done(err)
	return refund, err
}
