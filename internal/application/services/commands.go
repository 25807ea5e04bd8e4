package services

import (
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderSnapshot is the order as the shop platform submits it at checkout.
type OrderSnapshot struct {
	ID            string
	Number        string
	Currency      string
	Total         decimal.Decimal
	TotalTax      decimal.Decimal
	TotalShipping decimal.Decimal
	Billing       domain.BillingIdentity
	Shipping      domain.ShippingDetails
}

type CheckoutCommand struct {
	Order OrderSnapshot
	Card  domain.CardInput
	// UserID is empty for guest checkouts.
	UserID    string
	SessionID string
}

type CheckoutResult struct {
	Status      string
	RedirectURL string
	OrderID     string
	Mode        string
	Reference   string
}

const (
	ResultSuccess = "success"

	ModeDirect   = "direct"
	ModeCustomer = "customer"
)

type RefundCommand struct {
	OrderID string
	Amount  decimal.Decimal
	Reason  string
}

type StatusChangeCommand struct {
	OrderID string
	Status  domain.OrderStatus
}
