package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/events"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/telemetry"
	wmhttp "github.com/ThreeDotsLabs/watermill-http/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

type StatusChangeHandler interface {
	HandleStatusChange(ctx context.Context, event domain.OrderStatusChanged) (services.CaptureOutcome, error)
}

type ListenerConfig struct {
	Topic       string
	PoisonTopic string
}

// LifecycleListener consumes order status transitions and hands them to the
// deferred capture. Messages that fail are moved to the poison topic; they are
// never redelivered automatically.
type LifecycleListener struct {
	router  *message.Router
	webhook *wmhttp.Subscriber
	handler StatusChangeHandler
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewLifecycleListener(
	cfg ListenerConfig,
	subscriber message.Subscriber,
	publisher message.Publisher,
	handler StatusChangeHandler,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) (*LifecycleListener, error) {
	wmLogger := events.NewWatermillLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create lifecycle router: %w", err)
	}

	poisonQueue, err := middleware.PoisonQueue(publisher, cfg.PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("create poison queue: %w", err)
	}

	router.AddMiddleware(
		poisonQueue,
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	l := &LifecycleListener{
		router:  router,
		handler: handler,
		metrics: metrics,
		logger:  logger,
	}

	router.AddNoPublisherHandler("deferred_capture", cfg.Topic, subscriber, l.handle)

	return l, nil
}

// WithWebhook also accepts status changes pushed over HTTP on addr. A
// non-empty secret is checked on every request.
func (l *LifecycleListener) WithWebhook(addr, secret string) error {
	sub, err := events.NewWebhookSubscriber(addr, secret, events.NewWatermillLogger(l.logger))
	if err != nil {
		return err
	}
	l.webhook = sub
	l.router.AddNoPublisherHandler("deferred_capture_webhook", events.WebhookPath, sub, l.handle)
	return nil
}

// Run blocks until ctx is cancelled or Close is called.
func (l *LifecycleListener) Run(ctx context.Context) error {
	if l.webhook != nil {
		go func() {
			select {
			case <-l.router.Running():
			case <-ctx.Done():
				return
			}
			l.logger.Info("webhook subscriber starting", "path", events.WebhookPath)
			if err := l.webhook.StartHTTPServer(); err != nil {
				l.logger.Error("webhook subscriber stopped", "error", err)
			}
		}()
	}

	l.logger.Info("lifecycle listener starting")
	return l.router.Run(ctx)
}

func (l *LifecycleListener) Running() chan struct{} {
	return l.router.Running()
}

func (l *LifecycleListener) Close() error {
	err := l.router.Close()
	if l.webhook != nil {
		if closeErr := l.webhook.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func (l *LifecycleListener) handle(msg *message.Message) error {
	correlationID := middleware.MessageCorrelationID(msg)
	logger := l.logger.With("message_uuid", msg.UUID, "correlation_id", correlationID)

	event, err := events.DecodeStatusChange(msg)
	if err != nil {
		logger.Error("discarding malformed status change", "error", err)
		l.metrics.CaptureOutcomes.WithLabelValues("malformed").Inc()
		return err
	}

	ctx := events.WithCorrelationID(msg.Context(), correlationID)
	outcome, err := l.handler.HandleStatusChange(ctx, event)
	if err != nil {
		l.metrics.CaptureOutcomes.WithLabelValues(telemetry.Result(domain.ErrorCode(err), err)).Inc()

		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			logger.Warn("deferred capture failed",
				"order_id", event.OrderID,
				"to_status", event.ToStatus,
				"code", domainErr.Code,
				"error", err)
		} else {
			logger.Error("deferred capture failed",
				"order_id", event.OrderID,
				"to_status", event.ToStatus,
				"error", err)
		}
		return err
	}

	l.metrics.CaptureOutcomes.WithLabelValues(string(outcome)).Inc()
	logger.Info("status change handled",
		"order_id", event.OrderID,
		"to_status", event.ToStatus,
		"outcome", outcome)
	return nil
}
