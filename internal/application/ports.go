package application

import (
	"context"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// Processor is the port for the external card processor.
// Implementations never retry; a submitted charge or refund is not resubmitted automatically.
type Processor interface {
	CreateToken(ctx context.Context, req TokenRequest) (*domain.Token, error)
	CreateCustomer(ctx context.Context, req CustomerRequest) (*ProcessorCustomer, error)
	GetCustomer(ctx context.Context, customerID string) (*ProcessorCustomer, error)
	UpdateCustomerSource(ctx context.Context, customerID, tokenID string) (*ProcessorCustomer, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (*ProcessorCharge, error)
	GetCharge(ctx context.Context, chargeID string) (*ProcessorCharge, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*ProcessorRefund, error)
}

// ProcessorProvider hands out a Processor bound to the credentials of one configuration snapshot.
type ProcessorProvider interface {
	ForConfig(cfg domain.PaymentConfiguration) Processor
}

type TokenRequest struct {
	Number      string
	CVC         string
	ExpiryMonth int
	ExpiryYear  int
	Billing     domain.BillingIdentity
}

type CustomerRequest struct {
	Email       string
	Description string
	TokenID     string
}

type ProcessorCustomer struct {
	ID            string
	DefaultSource string
	Deleted       bool
}

type ShippingRequest struct {
	Name    string
	Phone   string
	Address domain.Address
}

// ChargeRequest carries either a single-use token (Source) or a stored customer (CustomerID).
type ChargeRequest struct {
	AmountMinor         int64
	Currency            string
	Source              string
	CustomerID          string
	Capture             bool
	Description         string
	ReceiptEmail        string
	StatementDescriptor string
	Metadata            map[string]string
	Shipping            *ShippingRequest
	// IdempotencyKey makes a resubmitted charge return the original one.
	IdempotencyKey string
}

type ProcessorCharge struct {
	ID          string
	AmountMinor int64
	Currency    string
	Paid        bool
	Captured    bool
	Status      string
	FailureMsg  string
	CreatedAt   time.Time
}

type RefundRequest struct {
	ChargeID    string
	AmountMinor int64
	Metadata    map[string]string
}

type ProcessorRefund struct {
	ID          string
	AmountMinor int64
	Currency    string
	Status      string
	CreatedAt   time.Time
}

// OrderStore is the port for order persistence and the per-order charge guard.
type OrderStore interface {
	// Register stores a new order, or refreshes the snapshot of an unpaid one,
	// and returns the stored row.
	Register(ctx context.Context, order *domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, paymentReference string) error
	// ClaimCharge atomically marks the order as being charged. It returns false
	// when the order is already paid or another charge holds the claim.
	ClaimCharge(ctx context.Context, id string) (bool, error)
	ReleaseChargeClaim(ctx context.Context, id string) error
	// CompleteCharge records the charge, stamps the paid marker and clears the claim in one transaction.
	CompleteCharge(ctx context.Context, charge *domain.Charge) error
	FindCharge(ctx context.Context, orderID string) (*domain.Charge, error)
	SaveRefund(ctx context.Context, refund *domain.Refund) error
	ListRefunds(ctx context.Context, orderID string) ([]*domain.Refund, error)
	AddNote(ctx context.Context, orderID, message string) error
	ListNotes(ctx context.Context, orderID string) ([]*domain.OrderNote, error)
}

// CustomerDirectory maps authenticated buyers to processor customers.
type CustomerDirectory interface {
	FindByUserID(ctx context.Context, userID string) (*domain.CustomerRecord, error)
	Save(ctx context.Context, record *domain.CustomerRecord) error
	UpdateFingerprint(ctx context.Context, userID, fingerprint string) error
}

// Locker serialises work on a key across every instance of the service.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// CartStore holds the buyer's cart for the session that placed the order.
type CartStore interface {
	Clear(ctx context.Context, sessionID string) error
}

// SettingsStore returns the configuration snapshot to run one operation against.
type SettingsStore interface {
	Current(ctx context.Context) (domain.PaymentConfiguration, error)
}

// LifecyclePublisher announces order status transitions to the lifecycle topic.
type LifecyclePublisher interface {
	PublishStatusChange(ctx context.Context, event domain.OrderStatusChanged) error
}

// PaymentEventPublisher emits processor outcomes for downstream consumers.
type PaymentEventPublisher interface {
	Publish(ctx context.Context, event domain.PaymentEvent) error
}
