package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// ChargePolicy decides, for a customer-mode checkout, whether the order goes
// straight to processing (and is charged by the capture listener) or is held
// for manual review.
type ChargePolicy func(ctx context.Context, order *domain.Order) bool

// ChargeImmediately is the default policy.
func ChargeImmediately(context.Context, *domain.Order) bool {
	return true
}

// HoldAbove holds orders whose total exceeds limit, in the order's currency.
func HoldAbove(limit string) (ChargePolicy, error) {
	threshold, err := domain.ParseAmount(limit)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, order *domain.Order) bool {
		return !order.Total.GreaterThan(threshold)
	}, nil
}
