package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-checkout/internal/config"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/events"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/telemetry"
	"github.com/DanielPopoola/ficmart-checkout/internal/worker"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	topic       = "order.status_changed"
	poisonTopic = "order.status_changed.poison"
)

type handledEvent struct {
	event         domain.OrderStatusChanged
	correlationID string
}

type recordingHandler struct {
	handled chan handledEvent
	err     error
}

func (h *recordingHandler) HandleStatusChange(ctx context.Context, event domain.OrderStatusChanged) (services.CaptureOutcome, error) {
	h.handled <- handledEvent{event: event, correlationID: events.CorrelationIDFrom(ctx)}
	return services.CaptureIgnoredStatus, h.err
}

func startListener(t *testing.T, handler worker.StatusChangeHandler) (*events.PubSub, context.Context) {
	t.Helper()

	ps, err := events.NewPubSub(config.EventsConfig{Transport: "gochannel"}, events.NewWatermillLogger(testhelpers.DiscardLogger()))
	require.NoError(t, err)

	listener, err := worker.NewLifecycleListener(
		worker.ListenerConfig{Topic: topic, PoisonTopic: poisonTopic},
		ps.Subscriber,
		ps.Publisher,
		handler,
		telemetry.NewMetrics(prometheus.NewRegistry()),
		testhelpers.DiscardLogger(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	go func() {
		_ = listener.Run(ctx)
	}()

	select {
	case <-listener.Running():
	case <-ctx.Done():
		t.Fatal("listener did not start")
	}

	t.Cleanup(func() {
		cancel()
		_ = listener.Close()
		_ = ps.Close()
	})
	return ps, ctx
}

func TestLifecycleListener_DeliversStatusChange(t *testing.T) {
	handler := &recordingHandler{handled: make(chan handledEvent, 1)}
	ps, ctx := startListener(t, handler)

	publisher := events.NewLifecyclePublisher(ps.Publisher, topic)
	require.NoError(t, publisher.PublishStatusChange(events.WithCorrelationID(ctx, "corr-1"), domain.OrderStatusChanged{
		OrderID:  "1001",
		ToStatus: domain.OrderProcessing,
	}))

	select {
	case got := <-handler.handled:
		assert.Equal(t, "1001", got.event.OrderID)
		assert.Equal(t, domain.OrderProcessing, got.event.ToStatus)
		assert.Equal(t, "corr-1", got.correlationID)
	case <-ctx.Done():
		t.Fatal("status change was not handled")
	}
}

func TestLifecycleListener_FailuresGoToPoisonTopic(t *testing.T) {
	handler := &recordingHandler{handled: make(chan handledEvent, 1), err: domain.NewChargeError("Your card was declined.", nil)}
	ps, ctx := startListener(t, handler)

	poisoned, err := ps.Subscriber.Subscribe(ctx, poisonTopic)
	require.NoError(t, err)

	require.NoError(t, events.NewLifecyclePublisher(ps.Publisher, topic).PublishStatusChange(ctx, domain.OrderStatusChanged{
		OrderID:  "1001",
		ToStatus: domain.OrderProcessing,
	}))

	<-handler.handled

	select {
	case msg := <-poisoned:
		msg.Ack()
		assert.Contains(t, msg.Metadata.Get(middleware.ReasonForPoisonedKey), "declined")
	case <-ctx.Done():
		t.Fatal("failed message was not moved to the poison topic")
	}
}

func TestLifecycleListener_MalformedPayloadIsPoisoned(t *testing.T) {
	handler := &recordingHandler{handled: make(chan handledEvent, 1)}
	ps, ctx := startListener(t, handler)

	poisoned, err := ps.Subscriber.Subscribe(ctx, poisonTopic)
	require.NoError(t, err)

	require.NoError(t, ps.Publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	select {
	case msg := <-poisoned:
		msg.Ack()
		assert.Equal(t, "not json", string(msg.Payload))
	case <-ctx.Done():
		t.Fatal("malformed message was not moved to the poison topic")
	}
	assert.Empty(t, handler.handled)
}

func TestLifecycleListener_ChargesStoredCustomer(t *testing.T) {
	processor := testhelpers.NewMockProcessor(t)
	orders := testhelpers.NewFakeOrderStore()
	customers := testhelpers.NewFakeCustomerDirectory()
	require.NoError(t, customers.Save(context.Background(), &domain.CustomerRecord{UserID: "user-42", CustomerID: "cus_42"}))

	order := testhelpers.NewOrder(t, "user-42", "42.50")
	order.Status = domain.OrderOnHold
	orders.Put(order)

	charged := make(chan struct{}, 1)
	processor.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req application.ChargeRequest) bool {
		return req.CustomerID == "cus_42" && req.AmountMinor == 4250
	})).Return(&application.ProcessorCharge{ID: "ch_42", AmountMinor: 4250, Currency: "usd", Paid: true, Captured: true}, nil).
		Run(func(mock.Arguments) { charged <- struct{}{} }).Once()

	capture := services.NewCaptureService(
		&testhelpers.StaticSettings{Config: testhelpers.DefaultConfig(t, true)},
		testhelpers.StaticProvider{Processor: processor},
		orders,
		customers,
		&testhelpers.RecordingEvents{},
		testhelpers.DiscardLogger(),
	)
	ps, ctx := startListener(t, capture)

	require.NoError(t, events.NewLifecyclePublisher(ps.Publisher, topic).PublishStatusChange(ctx, domain.OrderStatusChanged{
		OrderID:    order.ID,
		FromStatus: domain.OrderOnHold,
		ToStatus:   domain.OrderProcessing,
	}))

	select {
	case <-charged:
	case <-ctx.Done():
		t.Fatal("deferred capture did not charge")
	}

	require.Eventually(t, func() bool {
		stored, err := orders.FindByID(context.Background(), order.ID)
		return err == nil && stored.IsPaid()
	}, 5*time.Second, 20*time.Millisecond)
}
