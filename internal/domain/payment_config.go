package domain

import (
	"fmt"
	"slices"
	"strings"
)

type Mode string

const (
	ModeSandbox Mode = "sandbox"
	ModeLive    Mode = "live"
)

// KeyPair is one set of processor credentials
type KeyPair struct {
	SecretKey      string
	PublishableKey string
}

// PaymentSettings is the merchant's stored configuration before it is resolved
// into a PaymentConfiguration.
type PaymentSettings struct {
	Mode               Mode
	Sandbox            KeyPair
	Live               KeyPair
	AuthorizeOnly      bool
	SettlementCurrency string
	AcceptedBrands     []string
	CustomerMode       bool
	GuestCheckout      bool
	StoreName          string
	ReturnURLTemplate  string
	CaptureStatuses    []string
}

// PaymentConfiguration is the immutable snapshot a single checkout, capture or refund runs against.
type PaymentConfiguration struct {
	Mode                Mode
	SecretKey           string
	PublishableKey      string
	AuthorizeOnly       bool
	SettlementCurrency  string
	AcceptedBrands      []Brand
	CustomerModeEnabled bool
	StoreName           string
	ReturnURLTemplate   string
	CaptureStatuses     []OrderStatus
}

// NewPaymentConfiguration resolves the active key pair, normalises brands and
// statuses, and turns customer mode off whenever guest checkout is allowed.
func NewPaymentConfiguration(s PaymentSettings) (PaymentConfiguration, error) {
	mode := Mode(strings.ToLower(string(s.Mode)))
	if mode == "" {
		mode = ModeSandbox
	}

	var keys KeyPair
	switch mode {
	case ModeSandbox:
		keys = s.Sandbox
	case ModeLive:
		keys = s.Live
	default:
		return PaymentConfiguration{}, fmt.Errorf("unknown payment mode %q", s.Mode)
	}
	if keys.SecretKey == "" {
		return PaymentConfiguration{}, fmt.Errorf("secret key for %s mode is not configured", mode)
	}

	currency := strings.ToUpper(strings.TrimSpace(s.SettlementCurrency))
	if currency == "" {
		return PaymentConfiguration{}, fmt.Errorf("settlement currency is not configured")
	}

	brands := make([]Brand, 0, len(s.AcceptedBrands))
	for _, name := range s.AcceptedBrands {
		b := ParseBrand(name)
		if b == BrandUnknown {
			return PaymentConfiguration{}, fmt.Errorf("unknown card brand %q in accepted brands", name)
		}
		if !slices.Contains(brands, b) {
			brands = append(brands, b)
		}
	}

	statuses := make([]OrderStatus, 0, len(s.CaptureStatuses))
	for _, raw := range s.CaptureStatuses {
		st, err := ParseOrderStatus(raw)
		if err != nil {
			return PaymentConfiguration{}, err
		}
		statuses = append(statuses, st)
	}
	if len(statuses) == 0 {
		statuses = []OrderStatus{OrderProcessing}
	}

	return PaymentConfiguration{
		Mode:                mode,
		SecretKey:           keys.SecretKey,
		PublishableKey:      keys.PublishableKey,
		AuthorizeOnly:       s.AuthorizeOnly,
		SettlementCurrency:  currency,
		AcceptedBrands:      brands,
		CustomerModeEnabled: s.CustomerMode && !s.GuestCheckout,
		StoreName:           s.StoreName,
		ReturnURLTemplate:   s.ReturnURLTemplate,
		CaptureStatuses:     statuses,
	}, nil
}

// Accepts reports whether brand is in the accepted set. Unknown is never accepted.
func (c PaymentConfiguration) Accepts(brand Brand) bool {
	if brand == BrandUnknown {
		return false
	}
	return slices.Contains(c.AcceptedBrands, brand)
}

// TriggersCapture reports whether a transition into status should fire a deferred charge.
func (c PaymentConfiguration) TriggersCapture(status OrderStatus) bool {
	return slices.Contains(c.CaptureStatuses, status)
}

// ReturnURL expands {order_id} and {order_number} in the configured template.
func (c PaymentConfiguration) ReturnURL(order *Order) string {
	return strings.NewReplacer(
		"{order_id}", order.ID,
		"{order_number}", order.Number,
	).Replace(c.ReturnURLTemplate)
}
