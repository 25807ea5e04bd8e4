package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// OrderModel is the orders row. Billing and shipping are stored as JSONB.
type OrderModel struct {
	ID               string
	Number           string
	BuyerID          string
	Currency         string
	Total            pgtype.Numeric
	TotalTax         pgtype.Numeric
	TotalShipping    pgtype.Numeric
	Billing          billingDocument
	Shipping         shippingDocument
	Status           string
	PaymentReference string
	ChargeID         string
	PaidAt           *time.Time
	ChargeClaimedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type addressDocument struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type billingDocument struct {
	FirstName string          `json:"first_name,omitempty"`
	LastName  string          `json:"last_name,omitempty"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Address   addressDocument `json:"address"`
}

type shippingDocument struct {
	FirstName string          `json:"first_name,omitempty"`
	LastName  string          `json:"last_name,omitempty"`
	Address   addressDocument `json:"address"`
}

type ChargeModel struct {
	ID          string
	OrderID     string
	AmountMinor int64
	Currency    string
	CustomerID  string
	Captured    bool
	Paid        bool
	CreatedAt   time.Time
}

type RefundModel struct {
	ID          string
	OrderID     string
	ChargeID    string
	AmountMinor int64
	Currency    string
	Reason      string
	Status      string
	CreatedAt   time.Time
}

type CustomerModel struct {
	UserID      string
	CustomerID  string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
