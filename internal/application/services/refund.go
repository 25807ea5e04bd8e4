package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

type RefundService struct {
	settings   application.SettingsStore
	processors application.ProcessorProvider
	orders     application.OrderStore
	events     application.PaymentEventPublisher
	logger     *slog.Logger
}

func NewRefundService(
	settings application.SettingsStore,
	processors application.ProcessorProvider,
	orders application.OrderStore,
	events application.PaymentEventPublisher,
	logger *slog.Logger,
) *RefundService {
	return &RefundService{
		settings:   settings,
		processors: processors,
		orders:     orders,
		events:     events,
		logger:     logger,
	}
}

// Refund returns part or all of an order's recorded charge. Nothing is written
// to the order when the refund fails.
func (s *RefundService) Refund(ctx context.Context, cmd RefundCommand) (*domain.Refund, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domain.NewInvalidAmountError(cmd.Amount.String())
	}

	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return nil, application.NewInternalError(fmt.Errorf("load payment configuration: %w", err))
	}

	if _, err := s.orders.FindByID(ctx, cmd.OrderID); err != nil {
		return nil, err
	}

	recorded, err := s.orders.FindCharge(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, application.ErrChargeNotFound) {
			return nil, domain.NewRefundError(fmt.Sprintf("order %s has no recorded charge", cmd.OrderID), err)
		}
		return nil, application.NewInternalError(fmt.Errorf("find charge for order %s: %w", cmd.OrderID, err))
	}

	processor := s.processors.ForConfig(cfg)

	charge, err := processor.GetCharge(ctx, recorded.ID)
	if err != nil {
		return nil, classifyProcessorFailure(err, domain.NewRefundError)
	}

	currency := charge.Currency
	if currency == "" {
		currency = recorded.Currency
	}
	amount, err := domain.ToMinorUnits(cmd.Amount, currency)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, domain.NewInvalidAmountError(cmd.Amount.String())
	}

	ctx = submitted(ctx)
	result, err := processor.CreateRefund(ctx, application.RefundRequest{
		ChargeID:    charge.ID,
		AmountMinor: amount,
		Metadata: map[string]string{
			"Order #":       cmd.OrderID,
			"Refund reason": cmd.Reason,
		},
	})
	if err != nil {
		return nil, classifyProcessorFailure(err, domain.NewRefundError)
	}

	refund := &domain.Refund{
		ID:          result.ID,
		OrderID:     cmd.OrderID,
		ChargeID:    charge.ID,
		AmountMinor: result.AmountMinor,
		Currency:    currency,
		Reason:      cmd.Reason,
		Status:      result.Status,
		CreatedAt:   result.CreatedAt,
	}

	if err := s.orders.SaveRefund(ctx, refund); err != nil {
		s.logger.Error("refund issued but not recorded",
			"order_id", cmd.OrderID,
			"refund_id", refund.ID,
			"error", err,
		)
	}

	note := fmt.Sprintf("Refund completed at %s with refund ID %s",
		refund.CreatedAt.UTC().Format(noteTimeLayout), refund.ID)
	if err := s.orders.AddNote(ctx, cmd.OrderID, note); err != nil {
		s.logger.Error("failed to add order note", "order_id", cmd.OrderID, "error", err)
	}

	if err := s.events.Publish(ctx, domain.PaymentEvent{
		Type:        domain.EventRefundSucceeded,
		OrderID:     cmd.OrderID,
		Reference:   refund.ID,
		AmountMinor: refund.AmountMinor,
		Currency:    refund.Currency,
		Message:     cmd.Reason,
		OccurredAt:  refund.CreatedAt,
	}); err != nil {
		s.logger.Warn("failed to publish refund event", "order_id", cmd.OrderID, "error", err)
	}

	return refund, nil
}
