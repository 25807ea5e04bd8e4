package services

import (
	"context"
	"errors"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// OrderView is an order together with its payment records and audit trail.
type OrderView struct {
	Order   *domain.Order
	Charge  *domain.Charge
	Refunds []*domain.Refund
	Notes   []*domain.OrderNote
}

type QueryService struct {
	orders application.OrderStore
}

func NewQueryService(orders application.OrderStore) *QueryService {
	return &QueryService{orders: orders}
}

func (s *QueryService) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := &OrderView{Order: order}

	charge, err := s.orders.FindCharge(ctx, orderID)
	switch {
	case err == nil:
		view.Charge = charge
	case !errors.Is(err, application.ErrChargeNotFound):
		return nil, application.NewInternalError(err)
	}

	if view.Refunds, err = s.orders.ListRefunds(ctx, orderID); err != nil {
		return nil, application.NewInternalError(err)
	}
	if view.Notes, err = s.orders.ListNotes(ctx, orderID); err != nil {
		return nil, application.NewInternalError(err)
	}

	return view, nil
}
