package services

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// StatusService applies order status changes reported by the shop platform
// and announces them on the lifecycle topic.
type StatusService struct {
	orders    application.OrderStore
	lifecycle application.LifecyclePublisher
	clock     Clock
}

func NewStatusService(orders application.OrderStore, lifecycle application.LifecyclePublisher) *StatusService {
	return &StatusService{
		orders:    orders,
		lifecycle: lifecycle,
		clock:     systemClock,
	}
}

func (s *StatusService) ChangeStatus(ctx context.Context, cmd StatusChangeCommand) (*domain.OrderStatusChanged, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, cmd.Status, order.PaymentReference); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("update order %s status: %w", order.ID, err))
	}

	event := domain.OrderStatusChanged{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   cmd.Status,
		OccurredAt: s.clock(),
	}
	if err := s.lifecycle.PublishStatusChange(ctx, event); err != nil {
		return nil, application.NewInternalError(fmt.Errorf("announce status change for order %s: %w", order.ID, err))
	}

	return &event, nil
}
