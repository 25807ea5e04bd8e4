package services_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CaptureServiceTestSuite struct {
	suite.Suite
	settings  *testhelpers.StaticSettings
	processor *testhelpers.MockProcessor
	orders    *testhelpers.FakeOrderStore
	directory *testhelpers.FakeCustomerDirectory
	events    *testhelpers.RecordingEvents
	service   *services.CaptureService
}

func TestCaptureServiceSuite(t *testing.T) {
	suite.Run(t, new(CaptureServiceTestSuite))
}

func (suite *CaptureServiceTestSuite) SetupTest() {
	suite.settings = &testhelpers.StaticSettings{Config: testhelpers.DefaultConfig(suite.T(), true)}
	suite.processor = testhelpers.NewMockProcessor(suite.T())
	suite.orders = testhelpers.NewFakeOrderStore()
	suite.directory = testhelpers.NewFakeCustomerDirectory()
	suite.events = &testhelpers.RecordingEvents{}
	suite.service = services.NewCaptureService(
		suite.settings,
		testhelpers.StaticProvider{Processor: suite.processor},
		suite.orders,
		suite.directory,
		suite.events,
		testhelpers.DiscardLogger(),
	)

	require.NoError(suite.T(), suite.directory.Save(context.Background(), &domain.CustomerRecord{
		UserID:      "user-42",
		CustomerID:  "cus_42",
		Fingerprint: "fp_1",
	}))
}

func (suite *CaptureServiceTestSuite) customerOrder(total string) *domain.Order {
	order := testhelpers.NewOrder(suite.T(), "user-42", total)
	order.Status = domain.OrderProcessing
	order.PaymentReference = "cus_42"
	suite.orders.Put(order)
	return order
}

func processing(orderID string) domain.OrderStatusChanged {
	return domain.OrderStatusChanged{
		OrderID:    orderID,
		FromStatus: domain.OrderPending,
		ToStatus:   domain.OrderProcessing,
		OccurredAt: time.Now(),
	}
}

// ============================================================================
// HAPPY PATH TESTS
// ============================================================================

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_ChargesCustomer() {
	ctx := context.Background()
	t := suite.T()
	order := suite.customerOrder("42.50")

	suite.processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return req.CustomerID == "cus_42" &&
			req.Source == "" &&
			req.AmountMinor == 4250 &&
			req.Currency == "USD" &&
			req.Capture &&
			req.Metadata["Customer #"] == "user-42"
	})).Return(&application.ProcessorCharge{ID: "ch_42", AmountMinor: 4250, Currency: "usd", Paid: true, Captured: true}, nil).Once()

	outcome, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.NoError(t, err)
	assert.Equal(t, services.CaptureCharged, outcome)

	stored, err := suite.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.PaidAt)
	assert.Equal(t, "ch_42", stored.ChargeID)

	charge, err := suite.orders.FindCharge(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_42", charge.CustomerID)

	notes := suite.orders.NoteMessages(order.ID)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "with charge ID ch_42")
	assert.Equal(t, []domain.PaymentEventType{domain.EventChargeSucceeded}, suite.events.Types())
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_RedeliveryIsNoop() {
	ctx := context.Background()
	t := suite.T()
	order := suite.customerOrder("10.00")

	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&application.ProcessorCharge{ID: "ch_1", Paid: true, Captured: true}, nil).Once()

	first, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.NoError(t, err)
	assert.Equal(t, services.CaptureCharged, first)

	second, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.NoError(t, err)
	assert.Equal(t, services.CaptureAlreadyPaid, second)

	suite.processor.AssertNumberOfCalls(t, "CreateCharge", 1)
	assert.Len(t, suite.orders.NoteMessages(order.ID), 1)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_ConcurrentDeliveriesChargeOnce() {
	ctx := context.Background()
	t := suite.T()
	order := suite.customerOrder("10.00")

	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		After(50*time.Millisecond).
		Return(&application.ProcessorCharge{ID: "ch_1", Paid: true, Captured: true}, nil).Once()

	const numDeliveries = 5
	var wg sync.WaitGroup
	outcomes := make(chan services.CaptureOutcome, numDeliveries)

	for i := 0; i < numDeliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
			assert.NoError(t, err)
			outcomes <- outcome
		}()
	}

	wg.Wait()
	close(outcomes)

	charged := 0
	for o := range outcomes {
		if o == services.CaptureCharged {
			charged++
		} else {
			assert.Contains(t, []services.CaptureOutcome{services.CaptureClaimedElsewhere, services.CaptureAlreadyPaid}, o)
		}
	}
	assert.Equal(t, 1, charged)
	suite.processor.AssertNumberOfCalls(t, "CreateCharge", 1)
}

// ============================================================================
// GUARD TESTS
// ============================================================================

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_IgnoresOtherStatuses() {
	order := suite.customerOrder("10.00")
	event := processing(order.ID)
	event.ToStatus = domain.OrderCompleted

	outcome, err := suite.service.HandleStatusChange(context.Background(), event)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), services.CaptureIgnoredStatus, outcome)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_CustomerModeDisabled() {
	order := suite.customerOrder("10.00")
	suite.settings.Update(func(cfg *domain.PaymentConfiguration) { cfg.CustomerModeEnabled = false })

	outcome, err := suite.service.HandleStatusChange(context.Background(), processing(order.ID))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), services.CaptureCustomerModeOff, outcome)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_GuestOrder() {
	order := testhelpers.NewOrder(suite.T(), "", "10.00")
	suite.orders.Put(order)

	outcome, err := suite.service.HandleStatusChange(context.Background(), processing(order.ID))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), services.CaptureGuestOrder, outcome)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_DirectChargeAlreadyPaid() {
	order := suite.customerOrder("10.00")
	suite.orders.PutCharge(&domain.Charge{ID: "ch_direct", OrderID: order.ID, Paid: true})

	outcome, err := suite.service.HandleStatusChange(context.Background(), processing(order.ID))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), services.CaptureAlreadyPaid, outcome)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_UnknownOrder() {
	_, err := suite.service.HandleStatusChange(context.Background(), processing("missing"))
	assert.True(suite.T(), domain.IsErrorCode(err, domain.ErrCodeOrderNotFound))
}

// ============================================================================
// FAILURE TESTS
// ============================================================================

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_DeclineReleasesClaim() {
	ctx := context.Background()
	t := suite.T()
	order := suite.customerOrder("10.00")

	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(nil, &application.ProcessorError{Code: "card_declined", Message: "Your card was declined.", StatusCode: http.StatusPaymentRequired}).Once()

	_, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeChargeFailed))

	stored, err := suite.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PaidAt)
	assert.Nil(t, stored.ChargeClaimedAt)
	assert.Equal(t, []string{"Deferred payment failed: Your card was declined."}, suite.orders.NoteMessages(order.ID))
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_CancelledDeliveryKeepsClaim() {
	t := suite.T()
	order := suite.customerOrder("42.50")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chargeCtxErr error
	suite.processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return req.CustomerID == "cus_42" && req.IdempotencyKey == "charge:"+order.ID
	})).Run(func(args mock.Arguments) {
		cancel()
		chargeCtxErr = args.Get(0).(context.Context).Err()
	}).Return(nil, &application.ProcessorError{Code: "api_connection_error", Unavailable: true}).Once()

	_, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeProcessorUnavailable))
	assert.NoError(t, chargeCtxErr)

	stored, err := suite.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PaidAt)
	assert.NotNil(t, stored.ChargeClaimedAt)

	outcome, err := suite.service.HandleStatusChange(context.Background(), processing(order.ID))
	require.NoError(t, err)
	assert.Equal(t, services.CaptureClaimedElsewhere, outcome)
	suite.processor.AssertNumberOfCalls(t, "CreateCharge", 1)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_MissingCustomerRecord() {
	ctx := context.Background()
	t := suite.T()
	order := testhelpers.NewOrder(t, "user-without-record", "10.00")
	suite.orders.Put(order)

	_, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeCustomerNotFound))
	suite.processor.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func (suite *CaptureServiceTestSuite) Test_HandleStatusChange_UnpaidCharge() {
	ctx := context.Background()
	t := suite.T()
	order := suite.customerOrder("10.00")

	suite.processor.On("CreateCharge", mock.Anything, mock.Anything).
		Return(&application.ProcessorCharge{ID: "ch_pending", Paid: false, Status: "pending"}, nil).Once()

	_, err := suite.service.HandleStatusChange(ctx, processing(order.ID))
	require.Error(t, err)

	stored, err := suite.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PaidAt)
}
