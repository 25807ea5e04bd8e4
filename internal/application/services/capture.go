package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// CaptureOutcome describes what a status change led to.
type CaptureOutcome string

const (
	CaptureCharged          CaptureOutcome = "charged"
	CaptureIgnoredStatus    CaptureOutcome = "ignored_status"
	CaptureAlreadyPaid      CaptureOutcome = "already_paid"
	CaptureCustomerModeOff  CaptureOutcome = "customer_mode_disabled"
	CaptureGuestOrder       CaptureOutcome = "guest_order"
	CaptureClaimedElsewhere CaptureOutcome = "claimed_elsewhere"
)

// CaptureService charges a stored customer when its order reaches a capture status.
type CaptureService struct {
	settings   application.SettingsStore
	processors application.ProcessorProvider
	orders     application.OrderStore
	customers  application.CustomerDirectory
	events     application.PaymentEventPublisher
	clock      Clock
	logger     *slog.Logger
}

func NewCaptureService(
	settings application.SettingsStore,
	processors application.ProcessorProvider,
	orders application.OrderStore,
	customers application.CustomerDirectory,
	events application.PaymentEventPublisher,
	logger *slog.Logger,
) *CaptureService {
	return &CaptureService{
		settings:   settings,
		processors: processors,
		orders:     orders,
		customers:  customers,
		events:     events,
		clock:      systemClock,
		logger:     logger,
	}
}

// HandleStatusChange is safe to call any number of times for the same
// transition: once the order carries a paid marker every later call is a no-op.
func (s *CaptureService) HandleStatusChange(ctx context.Context, event domain.OrderStatusChanged) (CaptureOutcome, error) {
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return "", application.NewInternalError(fmt.Errorf("load payment configuration: %w", err))
	}

	if !cfg.TriggersCapture(event.ToStatus) {
		return CaptureIgnoredStatus, nil
	}

	order, err := s.orders.FindByID(ctx, event.OrderID)
	if err != nil {
		return "", err
	}

	switch {
	case order.IsPaid():
		return CaptureAlreadyPaid, nil
	case !cfg.CustomerModeEnabled:
		return CaptureCustomerModeOff, nil
	case order.IsGuest():
		return CaptureGuestOrder, nil
	}

	claimed, err := s.orders.ClaimCharge(ctx, order.ID)
	if err != nil {
		return "", application.NewInternalError(fmt.Errorf("claim charge for order %s: %w", order.ID, err))
	}
	if !claimed {
		return CaptureClaimedElsewhere, nil
	}

	ctx = submitted(ctx)
	charge, err := s.charge(ctx, cfg, order)
	if err != nil {
		if outcomeUnknown(err) {
			s.logger.Error("CHARGE_OUTCOME_UNKNOWN",
				"order_id", order.ID,
				"idempotency_key", chargeIdempotencyKey(order.ID),
				"error", err,
			)
			s.addNote(ctx, order.ID, "Charge outcome unknown; the order stays locked until the payment is reconciled.")
		} else if releaseErr := s.orders.ReleaseChargeClaim(ctx, order.ID); releaseErr != nil {
			s.logger.Error("failed to release charge claim", "order_id", order.ID, "error", releaseErr)
		}
		s.addNote(ctx, order.ID, "Deferred payment failed: "+failureMessage(err))
		s.publish(ctx, domain.PaymentEvent{
			Type:       domain.EventChargeFailed,
			OrderID:    order.ID,
			Message:    failureMessage(err),
			OccurredAt: s.clock(),
		})
		return "", err
	}

	if err := s.orders.CompleteCharge(ctx, charge); err != nil {
		s.logger.Error("UNRECORDED_CHARGE_RISK",
			"order_id", order.ID,
			"charge_id", charge.ID,
			"error", err,
		)
		return "", application.NewInternalError(fmt.Errorf("record charge %s: %w", charge.ID, err))
	}

	s.addNote(ctx, order.ID, fmt.Sprintf("Payment completed at %s with charge ID %s",
		s.clock().Format(noteTimeLayout), charge.ID))
	s.publish(ctx, domain.PaymentEvent{
		Type:        domain.EventChargeSucceeded,
		OrderID:     order.ID,
		Reference:   charge.ID,
		AmountMinor: charge.AmountMinor,
		Currency:    charge.Currency,
		OccurredAt:  s.clock(),
	})

	return CaptureCharged, nil
}

func (s *CaptureService) charge(ctx context.Context, cfg domain.PaymentConfiguration, order *domain.Order) (*domain.Charge, error) {
	record, err := s.customers.FindByUserID(ctx, order.BuyerID)
	if err != nil {
		if errors.Is(err, application.ErrCustomerNotFound) {
			return nil, domain.NewCustomerNotFoundError(order.BuyerID)
		}
		return nil, fmt.Errorf("find customer for user %s: %w", order.BuyerID, err)
	}

	amount, err := domain.ToMinorUnits(order.Total, cfg.SettlementCurrency)
	if err != nil {
		return nil, err
	}

	processor := s.processors.ForConfig(cfg)
	result, err := processor.CreateCharge(ctx, application.ChargeRequest{
		AmountMinor:         amount,
		Currency:            cfg.SettlementCurrency,
		CustomerID:          record.CustomerID,
		Capture:             !cfg.AuthorizeOnly,
		Description:         chargeDescription(cfg, order),
		ReceiptEmail:        order.Billing.Email,
		StatementDescriptor: statementDescriptor(order),
		Metadata:            chargeMetadata(order),
		Shipping:            chargeShipping(order),
		IdempotencyKey:      chargeIdempotencyKey(order.ID),
	})
	if err != nil {
		return nil, classifyProcessorFailure(err, domain.NewChargeError)
	}
	if !result.Paid {
		return nil, domain.NewChargeError(unpaidChargeMessage(result), nil)
	}

	return &domain.Charge{
		ID:          result.ID,
		OrderID:     order.ID,
		AmountMinor: result.AmountMinor,
		Currency:    result.Currency,
		CustomerID:  record.CustomerID,
		Captured:    result.Captured,
		Paid:        result.Paid,
		CreatedAt:   result.CreatedAt,
	}, nil
}

func (s *CaptureService) addNote(ctx context.Context, orderID, message string) {
	if err := s.orders.AddNote(ctx, orderID, message); err != nil {
		s.logger.Error("failed to add order note", "order_id", orderID, "error", err)
	}
}

func (s *CaptureService) publish(ctx context.Context, event domain.PaymentEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish payment event",
			"type", event.Type,
			"order_id", event.OrderID,
			"error", err,
		)
	}
}
