package processor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// Client implements application.Processor on top of the Stripe API using one secret key.
type Client struct {
	api *client.API
}

func newClient(secretKey string, backends *stripe.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

func (c *Client) CreateToken(ctx context.Context, req application.TokenRequest) (*domain.Token, error) {
	billing := req.Billing
	params := &stripe.TokenParams{
		Card: &stripe.CardParams{
			Number:         stripe.String(req.Number),
			CVC:            stripe.String(req.CVC),
			ExpMonth:       stripe.String(fmt.Sprintf("%02d", req.ExpiryMonth)),
			ExpYear:        stripe.String(strconv.Itoa(req.ExpiryYear)),
			Name:           optional(billing.FullName()),
			AddressLine1:   optional(billing.Address.Line1),
			AddressLine2:   optional(billing.Address.Line2),
			AddressCity:    optional(billing.Address.City),
			AddressState:   optional(billing.Address.State),
			AddressZip:     optional(billing.Address.PostalCode),
			AddressCountry: optional(billing.Address.Country),
		},
	}
	params.Context = ctx

	token, err := c.api.Tokens.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toDomainToken(token), nil
}

func (c *Client) CreateCustomer(ctx context.Context, req application.CustomerRequest) (*application.ProcessorCustomer, error) {
	params := &stripe.CustomerParams{
		Email:       optional(req.Email),
		Description: optional(req.Description),
	}
	params.Context = ctx
	if err := params.SetSource(req.TokenID); err != nil {
		return nil, fmt.Errorf("set customer source: %w", err)
	}

	customer, err := c.api.Customers.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toProcessorCustomer(customer), nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (*application.ProcessorCustomer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	customer, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toProcessorCustomer(customer), nil
}

// UpdateCustomerSource replaces the customer's default card with tokenID.
func (c *Client) UpdateCustomerSource(ctx context.Context, customerID, tokenID string) (*application.ProcessorCustomer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if err := params.SetSource(tokenID); err != nil {
		return nil, fmt.Errorf("set customer source: %w", err)
	}

	customer, err := c.api.Customers.Update(customerID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toProcessorCustomer(customer), nil
}

func (c *Client) CreateCharge(ctx context.Context, req application.ChargeRequest) (*application.ProcessorCharge, error) {
	params := &stripe.ChargeParams{
		Amount:              stripe.Int64(req.AmountMinor),
		Currency:            stripe.String(strings.ToLower(req.Currency)),
		Capture:             stripe.Bool(req.Capture),
		Description:         optional(req.Description),
		ReceiptEmail:        optional(req.ReceiptEmail),
		StatementDescriptor: optional(req.StatementDescriptor),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	switch {
	case req.CustomerID != "":
		params.Customer = stripe.String(req.CustomerID)
	case req.Source != "":
		if err := params.SetSource(req.Source); err != nil {
			return nil, fmt.Errorf("set charge source: %w", err)
		}
	default:
		return nil, fmt.Errorf("charge request needs a source or a customer")
	}

	if req.Shipping != nil {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name:    stripe.String(req.Shipping.Name),
			Phone:   optional(req.Shipping.Phone),
			Address: toAddressParams(req.Shipping.Address),
		}
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	charge, err := c.api.Charges.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toProcessorCharge(charge), nil
}

func (c *Client) GetCharge(ctx context.Context, chargeID string) (*application.ProcessorCharge, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx

	charge, err := c.api.Charges.Get(chargeID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return toProcessorCharge(charge), nil
}

func (c *Client) CreateRefund(ctx context.Context, req application.RefundRequest) (*application.ProcessorRefund, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(req.ChargeID),
		Amount: stripe.Int64(req.AmountMinor),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		return nil, mapError(err)
	}

	return &application.ProcessorRefund{
		ID:          refund.ID,
		AmountMinor: refund.Amount,
		Currency:    string(refund.Currency),
		Status:      string(refund.Status),
		CreatedAt:   unixTime(refund.Created),
	}, nil
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
