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

type RefundServiceTestSuite struct {
	suite.Suite
	processor *testhelpers.MockProcessor
	orders    *testhelpers.FakeOrderStore
	events    *testhelpers.RecordingEvents
	service   *services.RefundService
	order     *domain.Order
}

func TestRefundServiceSuite(t *testing.T) {
	suite.Run(t, new(RefundServiceTestSuite))
}

func (suite *RefundServiceTestSuite) SetupTest() {
	suite.processor = testhelpers.NewMockProcessor(suite.T())
	suite.orders = testhelpers.NewFakeOrderStore()
	suite.events = &testhelpers.RecordingEvents{}
	suite.service = services.NewRefundService(
		&testhelpers.StaticSettings{Config: testhelpers.DefaultConfig(suite.T(), false)},
		testhelpers.StaticProvider{Processor: suite.processor},
		suite.orders,
		suite.events,
		testhelpers.DiscardLogger(),
	)

	suite.order = testhelpers.NewOrder(suite.T(), "", "100.00")
	suite.orders.Put(suite.order)
	suite.orders.PutCharge(&domain.Charge{
		ID:          "ch_paid",
		OrderID:     suite.order.ID,
		AmountMinor: 10000,
		Currency:    "usd",
		Paid:        true,
		Captured:    true,
	})
}

func (suite *RefundServiceTestSuite) command(amount string) services.RefundCommand {
	return services.RefundCommand{
		OrderID: suite.order.ID,
		Amount:  decimal.RequireFromString(amount),
		Reason:  "damaged in transit",
	}
}

// ============================================================================
// HAPPY PATH TESTS
// ============================================================================

func (suite *RefundServiceTestSuite) Test_Refund_PartialAmount() {
	ctx := context.Background()
	t := suite.T()
	created := testhelpers.FixedClock()

	suite.processor.On("GetCharge", mock.Anything, "ch_paid").
		Return(&application.ProcessorCharge{ID: "ch_paid", AmountMinor: 10000, Currency: "usd", Paid: true}, nil).Once()
	suite.processor.On("CreateRefund", mock.Anything, application.RefundRequest{
		ChargeID:    "ch_paid",
		AmountMinor: 2500,
		Metadata: map[string]string{
			"Order #":       suite.order.ID,
			"Refund reason": "damaged in transit",
		},
	}).Return(&application.ProcessorRefund{ID: "re_1", AmountMinor: 2500, Currency: "usd", Status: "succeeded", CreatedAt: created}, nil).Once()

	refund, err := suite.service.Refund(ctx, suite.command("25.00"))
	require.NoError(t, err)
	assert.Equal(t, "re_1", refund.ID)
	assert.Equal(t, int64(2500), refund.AmountMinor)
	assert.Equal(t, "ch_paid", refund.ChargeID)

	refunds, err := suite.orders.ListRefunds(ctx, suite.order.ID)
	require.NoError(t, err)
	assert.Len(t, refunds, 1)

	assert.Equal(t,
		[]string{"Refund completed at 2026-03-14 09:26:53 UTC with refund ID re_1"},
		suite.orders.NoteMessages(suite.order.ID),
	)
	assert.Equal(t, []domain.PaymentEventType{domain.EventRefundSucceeded}, suite.events.Types())
}

func (suite *RefundServiceTestSuite) Test_Refund_ZeroDecimalChargeCurrency() {
	t := suite.T()

	suite.processor.On("GetCharge", mock.Anything, "ch_paid").
		Return(&application.ProcessorCharge{ID: "ch_paid", Currency: "jpy", Paid: true}, nil).Once()
	suite.processor.On("CreateRefund", mock.Anything, mock.MatchedBy(func(req application.RefundRequest) bool {
		return req.AmountMinor == 1500
	})).Return(&application.ProcessorRefund{ID: "re_jpy", AmountMinor: 1500, Status: "succeeded", CreatedAt: time.Now()}, nil).Once()

	refund, err := suite.service.Refund(context.Background(), suite.command("1500"))
	require.NoError(t, err)
	assert.Equal(t, "jpy", refund.Currency)
}

// ============================================================================
// VALIDATION TESTS
// ============================================================================

func (suite *RefundServiceTestSuite) Test_Refund_RejectsNonPositiveAmounts() {
	for _, amount := range []string{"0", "-5", "0.00"} {
		suite.Run(amount, func() {
			_, err := suite.service.Refund(context.Background(), suite.command(amount))
			require.Error(suite.T(), err)
			assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
		})
	}

	suite.processor.AssertNotCalled(suite.T(), "GetCharge", mock.Anything, mock.Anything)
	suite.processor.AssertNotCalled(suite.T(), "CreateRefund", mock.Anything, mock.Anything)
	assert.Empty(suite.T(), suite.orders.NoteMessages(suite.order.ID))
}

func (suite *RefundServiceTestSuite) Test_Refund_AmountRoundsToZero() {
	suite.processor.On("GetCharge", mock.Anything, "ch_paid").
		Return(&application.ProcessorCharge{ID: "ch_paid", Currency: "usd", Paid: true}, nil).Once()

	_, err := suite.service.Refund(context.Background(), suite.command("0.001"))
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
	suite.processor.AssertNotCalled(suite.T(), "CreateRefund", mock.Anything, mock.Anything)
}

func (suite *RefundServiceTestSuite) Test_Refund_OrderWithoutCharge() {
	order := testhelpers.NewOrder(suite.T(), "", "10.00")
	suite.orders.Put(order)

	_, err := suite.service.Refund(context.Background(), services.RefundCommand{
		OrderID: order.ID,
		Amount:  decimal.RequireFromString("5.00"),
	})
	require.Error(suite.T(), err)
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeRefundFailed))
}

func (suite *RefundServiceTestSuite) Test_Refund_UnknownOrder() {
	_, err := suite.service.Refund(context.Background(), services.RefundCommand{
		OrderID: "missing",
		Amount:  decimal.RequireFromString("5.00"),
	})
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeOrderNotFound))
}

// ============================================================================
// PROCESSOR FAILURE TESTS
// ============================================================================

func (suite *RefundServiceTestSuite) Test_Refund_ProcessorRejects() {
	t := suite.T()

	suite.processor.On("GetCharge", mock.Anything, "ch_paid").
		Return(&application.ProcessorCharge{ID: "ch_paid", Currency: "usd", Paid: true}, nil).Once()
	suite.processor.On("CreateRefund", mock.Anything, mock.Anything).
		Return(nil, &application.ProcessorError{
			Code:       "charge_already_refunded",
			Message:    "Charge ch_paid has already been refunded.",
			StatusCode: http.StatusBadRequest,
		}).Once()

	_, err := suite.service.Refund(context.Background(), suite.command("25.00"))
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeRefundFailed))
	assert.Contains(t, err.Error(), "already been refunded")

	assert.Empty(t, suite.orders.NoteMessages(suite.order.ID))
	assert.Empty(t, suite.events.Types())
}

func (suite *RefundServiceTestSuite) Test_Refund_ChargeLookupUnavailable() {
	suite.processor.On("GetCharge", mock.Anything, "ch_paid").
		Return(nil, errors.New("connection reset by peer")).Once()

	_, err := suite.service.Refund(context.Background(), suite.command("25.00"))
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeProcessorUnavailable))
	suite.processor.AssertNotCalled(suite.T(), "CreateRefund", mock.Anything, mock.Anything)
}
