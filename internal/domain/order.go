// Package domain holds the checkout entities: orders, cards, charges, refunds and
// the payment configuration snapshot that drives a checkout.
package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the shop platform's order lifecycle
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderOnHold     OrderStatus = "on-hold"
	OrderFailed     OrderStatus = "failed"
	OrderRefunded   OrderStatus = "refunded"
	OrderCancelled  OrderStatus = "cancelled"
)

var knownStatuses = []OrderStatus{
	OrderPending, OrderProcessing, OrderCompleted, OrderOnHold,
	OrderFailed, OrderRefunded, OrderCancelled,
}

// ParseOrderStatus accepts a status with or without the platform's "wc-" prefix.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "wc-"))
	if !slices.Contains(knownStatuses, s) {
		return "", NewInvalidStateError("unknown order status " + raw)
	}
	return s, nil
}

type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// BillingIdentity is the buyer's billing block: name, address and contact details
type BillingIdentity struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   Address
}

func (b BillingIdentity) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

type ShippingDetails struct {
	FirstName string
	LastName  string
	Address   Address
}

func (s ShippingDetails) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type Order struct {
	ID            string
	Number        string
	BuyerID       string
	Currency      string
	Total         decimal.Decimal
	TotalTax      decimal.Decimal
	TotalShipping decimal.Decimal
	Billing       BillingIdentity
	Shipping      ShippingDetails
	Status        OrderStatus

	PaymentReference string
	ChargeID         string
	PaidAt           *time.Time
	ChargeClaimedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewOrder(id, number, buyerID, currency string, total decimal.Decimal) (*Order, error) {
	if id == "" {
		return nil, errors.New("order ID is required")
	}
	if currency == "" {
		return nil, errors.New("order currency is required")
	}
	if total.IsNegative() {
		return nil, NewInvalidAmountError(total.String())
	}
	if number == "" {
		number = id
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		Number:    number,
		BuyerID:   buyerID,
		Currency:  strings.ToUpper(currency),
		Total:     total,
		Status:    OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsPaid reports whether a charge has already been recorded against the order.
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// IsGuest reports whether the order was placed without an authenticated buyer.
func (o *Order) IsGuest() bool {
	return o.BuyerID == ""
}

// OrderNote is one append-only entry in an order's audit trail
type OrderNote struct {
	ID        int64
	OrderID   string
	Message   string
	CreatedAt time.Time
}

// Charge is a successful processor charge recorded against an order. At most one exists per order.
type Charge struct {
	ID          string
	OrderID     string
	AmountMinor int64
	Currency    string
	CustomerID  string
	Captured    bool
	Paid        bool
	CreatedAt   time.Time
}

type Refund struct {
	ID          string
	OrderID     string
	ChargeID    string
	AmountMinor int64
	Currency    string
	Reason      string
	Status      string
	CreatedAt   time.Time
}

// CustomerRecord links an authenticated buyer to a processor customer and the
// fingerprint of the card currently on file.
type CustomerRecord struct {
	UserID      string
	CustomerID  string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
