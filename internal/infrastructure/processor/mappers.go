package processor

import (
	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/stripe/stripe-go/v72"
)

// optional leaves empty strings out of the request entirely.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}

func toAddressParams(a domain.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      optional(a.Line1),
		Line2:      optional(a.Line2),
		City:       optional(a.City),
		State:      optional(a.State),
		PostalCode: optional(a.PostalCode),
		Country:    optional(a.Country),
	}
}

func toDomainToken(t *stripe.Token) *domain.Token {
	token := &domain.Token{ID: t.ID}
	if t.Card != nil {
		token.Fingerprint = t.Card.Fingerprint
		token.Brand = string(t.Card.Brand)
		token.Last4 = t.Card.Last4
	}
	return token
}

func toProcessorCustomer(c *stripe.Customer) *application.ProcessorCustomer {
	out := &application.ProcessorCustomer{
		ID:      c.ID,
		Deleted: c.Deleted,
	}
	if c.DefaultSource != nil {
		out.DefaultSource = c.DefaultSource.ID
	}
	return out
}

func toProcessorCharge(c *stripe.Charge) *application.ProcessorCharge {
	return &application.ProcessorCharge{
		ID:          c.ID,
		AmountMinor: c.Amount,
		Currency:    string(c.Currency),
		Paid:        c.Paid,
		Captured:    c.Captured,
		Status:      string(c.Status),
		FailureMsg:  c.FailureMessage,
		CreatedAt:   unixTime(c.Created),
	}
}
