package testhelpers

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	VisaCard       = "4242424242424242"
	MasterCard     = "5555555555554444"
	AmexCard       = "378282246310005"
	TestExpiry     = "12 / 30"
	TestCVC        = "123"
	TestReturnURL  = "https://shop.example/checkout/order-received/{order_id}"
	TestStoreName  = "FicMart"
	TestSecretKey  = "sk_test_checkout"
	TestCurrency   = "USD"
	TestBuyerEmail = "ada@example.com"
)

// DefaultConfig returns a sandbox configuration accepting Visa and MasterCard.
func DefaultConfig(t *testing.T, customerMode bool) domain.PaymentConfiguration {
	cfg, err := domain.NewPaymentConfiguration(domain.PaymentSettings{
		Mode:               domain.ModeSandbox,
		Sandbox:            domain.KeyPair{SecretKey: TestSecretKey, PublishableKey: "pk_test_checkout"},
		SettlementCurrency: TestCurrency,
		AcceptedBrands:     []string{"visa", "mastercard"},
		CustomerMode:       customerMode,
		StoreName:          TestStoreName,
		ReturnURLTemplate:  TestReturnURL,
	})
	require.NoError(t, err)
	return cfg
}

func DefaultBilling() domain.BillingIdentity {
	return domain.BillingIdentity{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     TestBuyerEmail,
		Phone:     "+44 20 7946 0000",
		Address: domain.Address{
			Line1:      "12 St James's Square",
			City:       "London",
			PostalCode: "SW1Y 4JH",
			Country:    "GB",
		},
	}
}

// DefaultCheckoutCommand returns a guest checkout of 19.99 USD paid with a Visa card.
func DefaultCheckoutCommand() services.CheckoutCommand {
	orderID := "order-" + uuid.New().String()
	return services.CheckoutCommand{
		Order: services.OrderSnapshot{
			ID:            orderID,
			Number:        "1001",
			Currency:      TestCurrency,
			Total:         decimal.RequireFromString("19.99"),
			TotalTax:      decimal.RequireFromString("1.50"),
			TotalShipping: decimal.RequireFromString("4.00"),
			Billing:       DefaultBilling(),
			Shipping: domain.ShippingDetails{
				FirstName: "Ada",
				LastName:  "Lovelace",
				Address:   DefaultBilling().Address,
			},
		},
		Card: domain.CardInput{
			Number: VisaCard,
			Expiry: TestExpiry,
			CVC:    TestCVC,
		},
		SessionID: "sess-" + uuid.New().String(),
	}
}

// NewOrder builds a stored-order fixture owned by buyerID.
func NewOrder(t *testing.T, buyerID, total string) *domain.Order {
	order, err := domain.NewOrder("order-"+uuid.New().String(), "2002", buyerID, TestCurrency, decimal.RequireFromString(total))
	require.NoError(t, err)
	order.Billing = DefaultBilling()
	return order
}

func Token(fingerprint string) *domain.Token {
	return &domain.Token{
		ID:          "tok_" + uuid.New().String()[:8],
		Fingerprint: fingerprint,
		Brand:       "Visa",
		Last4:       "4242",
	}
}

func FixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}
