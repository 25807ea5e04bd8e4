package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CheckoutServiceTestSuite struct {
	suite.Suite
	settings   *testhelpers.StaticSettings
	processor  *testhelpers.MockProcessor
	orders     *testhelpers.FakeOrderStore
	directory  *testhelpers.FakeCustomerDirectory
	locker     *testhelpers.KeyedLocker
	lifecycle  *testhelpers.RecordingLifecycle
	events     *testhelpers.RecordingEvents
	cart       *testhelpers.FakeCart
	service    *services.CheckoutService
	customerID string
}

func TestCheckoutServiceSuite(t *testing.T) {
	suite.Run(t, new(CheckoutServiceTestSuite))
}

func (suite *CheckoutServiceTestSuite) SetupTest() {
	suite.settings = &testhelpers.StaticSettings{Config: testhelpers.DefaultConfig(suite.T(), false)}
	suite.processor = testhelpers.NewMockProcessor(suite.T())
	suite.orders = testhelpers.NewFakeOrderStore()
	suite.directory = testhelpers.NewFakeCustomerDirectory()
	suite.locker = testhelpers.NewKeyedLocker()
	suite.lifecycle = &testhelpers.RecordingLifecycle{}
	suite.events = &testhelpers.RecordingEvents{}
	suite.cart = &testhelpers.FakeCart{}
	suite.customerID = "cus_123"
	suite.service = suite.newService()
}

func (suite *CheckoutServiceTestSuite) newService(opts ...services.CheckoutOption) *services.CheckoutService {
	opts = append([]services.CheckoutOption{services.WithCheckoutClock(testhelpers.FixedClock)}, opts...)
	return services.NewCheckoutService(
		suite.settings,
		testhelpers.StaticProvider{Processor: suite.processor},
		suite.orders,
		services.NewTokenizeService(),
		services.NewCustomerService(suite.directory, suite.locker),
		suite.lifecycle,
		suite.events,
		suite.cart,
		testhelpers.DiscardLogger(),
		opts...,
	)
}

func (suite *CheckoutServiceTestSuite) enableCustomerMode() {
	suite.settings.Update(func(cfg *domain.PaymentConfiguration) {
		cfg.CustomerModeEnabled = true
	})
}

func (suite *CheckoutServiceTestSuite) expectToken(fingerprint string) *domain.Token {
	token := testhelpers.Token(fingerprint)
	suite.processor.On("CreateToken", mock.Anything, mock.MatchedBy(func(req application.TokenRequest) bool {
		return req.Number == testhelpers.VisaCard && req.ExpiryMonth == 12 && req.ExpiryYear == 2030
	})).Return(token, nil).Once()
	return token
}

// ============================================================================
// HAPPY PATH TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_DirectChargeSuccess() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	token := suite.expectToken("fp_1")

	suite.processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return req.AmountMinor == 1999 &&
			req.Currency == "USD" &&
			req.Source == token.ID &&
			req.CustomerID == "" &&
			req.Capture &&
			req.StatementDescriptor == "Order#1001" &&
			req.Description == "FicMart Order #1001" &&
			req.ReceiptEmail == testhelpers.TestBuyerEmail &&
			req.Metadata["Order #"] == "1001" &&
			req.Metadata["Total Tax"] == "1.50" &&
			req.Shipping != nil && req.Shipping.Phone == "+44 20 7946 0000"
	})).Return(&application.ProcessorCharge{
		ID: "ch_1", AmountMinor: 1999, Currency: "usd", Paid: true, Captured: true, CreatedAt: testhelpers.FixedClock(),
	}, nil).Once()

	result, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, services.ResultSuccess, result.Status)
	assert.Equal(t, services.ModeDirect, result.Mode)
	assert.Equal(t, "ch_1", result.Reference)
	assert.Equal(t, "https://shop.example/checkout/order-received/"+cmd.Order.ID, result.RedirectURL)

	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, order.Status)
	assert.Equal(t, "ch_1", order.PaymentReference)
	assert.NotNil(t, order.PaidAt)
	assert.Nil(t, order.ChargeClaimedAt)

	charge, err := suite.orders.FindCharge(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), charge.AmountMinor)

	assert.Equal(t, []string{"Payment completed at 2026-03-14 09:26:53 UTC with charge ID ch_1"}, suite.orders.NoteMessages(cmd.Order.ID))
	assert.Equal(t, []string{cmd.SessionID}, suite.cart.Cleared())
	assert.Equal(t, []domain.PaymentEventType{domain.EventChargeSucceeded}, suite.events.Types())
	require.Len(t, suite.lifecycle.Events(), 1)
	assert.Equal(t, domain.OrderProcessing, suite.lifecycle.Events()[0].ToStatus)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_AuthorizeOnly() {
	ctx := context.Background()
	t := suite.T()
	suite.settings.Update(func(cfg *domain.PaymentConfiguration) { cfg.AuthorizeOnly = true })
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.expectToken("fp_1")

	suite.processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return !req.Capture
	})).Return(&application.ProcessorCharge{ID: "ch_auth", AmountMinor: 1999, Currency: "usd", Paid: true}, nil).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
	assert.Contains(t, suite.orders.NoteMessages(cmd.Order.ID)[0], "Payment authorized at")
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_CustomerModeChargesLater() {
	ctx := context.Background()
	t := suite.T()
	suite.enableCustomerMode()
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.UserID = "user-42"
	token := suite.expectToken("fp_1")

	suite.processor.On("CreateCustomer", mock.Anything, application.CustomerRequest{
		Email:       testhelpers.TestBuyerEmail,
		Description: "Ada Lovelace",
		TokenID:     token.ID,
	}).Return(&application.ProcessorCustomer{ID: suite.customerID}, nil).Once()

	result, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, services.ModeCustomer, result.Mode)
	assert.Equal(t, suite.customerID, result.Reference)
	suite.processor.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)

	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, order.Status)
	assert.Equal(t, suite.customerID, order.PaymentReference)
	assert.Nil(t, order.PaidAt)

	events := suite.lifecycle.Events()
	require.Len(t, events, 1)
	assert.Equal(t, cmd.Order.ID, events[0].OrderID)
	assert.Equal(t, domain.OrderProcessing, events[0].ToStatus)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_CustomerModeHeldByPolicy() {
	ctx := context.Background()
	t := suite.T()
	suite.enableCustomerMode()
	policy, err := services.HoldAbove("10.00")
	require.NoError(t, err)
	suite.service = suite.newService(services.WithChargePolicy(policy))

	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.UserID = "user-42"
	suite.expectToken("fp_1")
	suite.processor.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&application.ProcessorCustomer{ID: suite.customerID}, nil).Once()

	result, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, services.ResultSuccess, result.Status)

	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderOnHold, order.Status)
	assert.Empty(t, suite.lifecycle.Events())
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_GuestNeverCreatesCustomer() {
	ctx := context.Background()
	t := suite.T()
	suite.enableCustomerMode()
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.expectToken("fp_1")

	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&application.ProcessorCharge{ID: "ch_guest", Paid: true, Captured: true}, nil).Once()

	result, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, services.ModeDirect, result.Mode)
	suite.processor.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_CartClearFailureIsNotFatal() {
	ctx := context.Background()
	t := suite.T()
	suite.cart.Err = errors.New("redis down")
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.expectToken("fp_1")
	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&application.ProcessorCharge{ID: "ch_1", Paid: true, Captured: true}, nil).Once()

	result, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, services.ResultSuccess, result.Status)
}

// ============================================================================
// REJECTION TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_UnacceptedBrandRejected() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.Card.Number = testhelpers.AmexCard

	result, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeUnsupportedCardBrand))

	suite.processor.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything)
	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, []string{"Payment failed: card brand amex is not accepted"}, suite.orders.NoteMessages(cmd.Order.ID))
	assert.Empty(t, suite.cart.Cleared())
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_UnknownBrandRejected() {
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.Card.Number = "9999999999999999"

	_, err := suite.service.Checkout(context.Background(), cmd)
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeUnsupportedCardBrand))
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_MissingCVC() {
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.Card.CVC = ""

	_, err := suite.service.Checkout(context.Background(), cmd)
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeMissingRequiredField))
	suite.processor.AssertNotCalled(suite.T(), "CreateToken", mock.Anything, mock.Anything)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_InvalidExpiry() {
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.Card.Expiry = "13 / 30"

	_, err := suite.service.Checkout(context.Background(), cmd)
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeInvalidCardExpiry))
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_TokenizationRejected() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.processor.On("CreateToken", mock.Anything, mock.Anything).
		Return(nil, &application.ProcessorError{Code: "incorrect_number", Message: "Your card number is incorrect.", StatusCode: http.StatusPaymentRequired}).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeTokenizationFailed))
	assert.Equal(t, []string{"Payment failed: Your card number is incorrect."}, suite.orders.NoteMessages(cmd.Order.ID))
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_ChargeDeclinedKeepsOrderUnpaid() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.expectToken("fp_1")
	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(nil, &application.ProcessorError{Code: "card_declined", Message: "Your card was declined.", StatusCode: http.StatusPaymentRequired}).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeChargeFailed))

	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Nil(t, order.PaidAt)
	assert.Nil(t, order.ChargeClaimedAt, "claim must be released after a failed charge")
	assert.Equal(t, []string{"Payment failed: Your card was declined."}, suite.orders.NoteMessages(cmd.Order.ID))
	assert.Equal(t, []domain.PaymentEventType{domain.EventChargeFailed}, suite.events.Types())
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_UnpaidChargeIsFailure() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.expectToken("fp_1")
	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&application.ProcessorCharge{ID: "ch_x", Paid: false, Status: "failed", FailureMsg: "insufficient funds"}, nil).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeChargeFailed))
	assert.Contains(t, err.Error(), "insufficient funds")

	_, err = suite.orders.FindCharge(ctx, cmd.Order.ID)
	assert.ErrorIs(t, err, application.ErrChargeNotFound)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_CallerCancelledDuringCharge() {
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.expectToken("fp_1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chargeCtxErr error
	suite.processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return req.IdempotencyKey == "charge:"+cmd.Order.ID
	})).Run(func(args mock.Arguments) {
		// The buyer disconnects while the processor is taking the charge.
		cancel()
		chargeCtxErr = args.Get(0).(context.Context).Err()
	}).Return(nil, &application.ProcessorError{Code: "api_connection_error", Unavailable: true}).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeProcessorUnavailable))
	assert.NoError(t, chargeCtxErr, "a submitted charge must not see the caller's cancellation")

	order, err := suite.orders.FindByID(context.Background(), cmd.Order.ID)
	require.NoError(t, err)
	assert.Nil(t, order.PaidAt)
	assert.NotNil(t, order.ChargeClaimedAt, "claim must be held while the charge outcome is unknown")
	assert.Contains(t, suite.orders.NoteMessages(cmd.Order.ID),
		"Charge outcome unknown; the order stays locked until the payment is reconciled.")

	suite.expectToken("fp_1")
	_, err = suite.service.Checkout(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeChargeInProgress))
	suite.processor.AssertNumberOfCalls(t, "CreateCharge", 1)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_ProcessorUnavailable() {
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.processor.On("CreateToken", mock.Anything, mock.Anything).
		Return(nil, &application.ProcessorError{Code: "api_connection_error", Unavailable: true}).Once()

	_, err := suite.service.Checkout(context.Background(), cmd)
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeProcessorUnavailable))
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_CustomerUpdateFailure() {
	ctx := context.Background()
	t := suite.T()
	suite.enableCustomerMode()
	require.NoError(t, suite.directory.Save(ctx, &domain.CustomerRecord{UserID: "user-42", CustomerID: suite.customerID, Fingerprint: "fp_old"}))

	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.UserID = "user-42"
	token := suite.expectToken("fp_new")
	suite.processor.On("GetCustomer", mock.Anything, suite.customerID).
		Return(&application.ProcessorCustomer{ID: suite.customerID}, nil).Once()
	suite.processor.On("UpdateCustomerSource", mock.Anything, suite.customerID, token.ID).
		Return(nil, &application.ProcessorError{Code: "card_declined", Message: "Your card was declined.", StatusCode: http.StatusPaymentRequired}).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCustomerUpdateFailed))

	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
}

// ============================================================================
// EDGE CASE TESTS
// ============================================================================

func (suite *CheckoutServiceTestSuite) Test_Checkout_AlreadyPaidOrder() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()

	order, err := domain.NewOrder(cmd.Order.ID, "1001", "", "USD", decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	paidAt := time.Now()
	order.PaidAt = &paidAt
	suite.orders.Put(order)

	_, err = suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeOrderAlreadyPaid))
	suite.processor.AssertNotCalled(t, "CreateToken", mock.Anything, mock.Anything)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_ChargeAlreadyClaimed() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()

	order, err := domain.NewOrder(cmd.Order.ID, "1001", "", "USD", decimal.RequireFromString("19.99"))
	require.NoError(t, err)
	claimedAt := time.Now()
	order.ChargeClaimedAt = &claimedAt
	suite.orders.Put(order)
	suite.expectToken("fp_1")

	_, err = suite.service.Checkout(ctx, cmd)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeChargeInProgress))
	suite.processor.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_ZeroDecimalCurrency() {
	ctx := context.Background()
	t := suite.T()
	suite.settings.Update(func(cfg *domain.PaymentConfiguration) { cfg.SettlementCurrency = "JPY" })
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.Order.Currency = "JPY"
	cmd.Order.Total = decimal.NewFromInt(1000)
	suite.expectToken("fp_1")

	suite.processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return req.AmountMinor == 1000 && req.Currency == "JPY"
	})).Return(&application.ProcessorCharge{ID: "ch_jpy", Paid: true, Captured: true}, nil).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_LifecyclePublishFailureStillSucceeds() {
	ctx := context.Background()
	t := suite.T()
	suite.enableCustomerMode()
	suite.lifecycle.Err = errors.New("broker unreachable")
	cmd := testhelpers.DefaultCheckoutCommand()
	cmd.UserID = "user-42"
	suite.expectToken("fp_1")
	suite.processor.On("CreateCustomer", mock.Anything, mock.Anything).
		Return(&application.ProcessorCustomer{ID: suite.customerID}, nil).Once()

	result, err := suite.service.Checkout(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, services.ResultSuccess, result.Status)

	notes := suite.orders.NoteMessages(cmd.Order.ID)
	require.Len(t, notes, 2)
	assert.Contains(t, notes[1], "could not be announced")
}

func (suite *CheckoutServiceTestSuite) Test_Checkout_RecordFailureKeepsClaim() {
	ctx := context.Background()
	t := suite.T()
	cmd := testhelpers.DefaultCheckoutCommand()
	suite.orders.CompleteChargeFn = func(context.Context, *domain.Charge) error {
		return errors.New("connection reset")
	}
	suite.expectToken("fp_1")
	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&application.ProcessorCharge{ID: "ch_lost", Paid: true, Captured: true}, nil).Once()

	_, err := suite.service.Checkout(ctx, cmd)
	require.Error(t, err)

	order, err := suite.orders.FindByID(ctx, cmd.Order.ID)
	require.NoError(t, err)
	assert.NotNil(t, order.ChargeClaimedAt)
}
