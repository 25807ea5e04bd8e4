package services

import (
	"context"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// TokenizeService exchanges raw card data for a single-use processor token.
type TokenizeService struct{}

func NewTokenizeService() *TokenizeService {
	return &TokenizeService{}
}

// Tokenize validates the card fields, then makes exactly one processor call.
func (s *TokenizeService) Tokenize(
	ctx context.Context,
	processor application.Processor,
	card domain.CardInput,
	billing domain.BillingIdentity,
) (*domain.Token, error) {
	if err := card.Validate(); err != nil {
		return nil, err
	}

	expiry, err := domain.ParseExpiry(card.Expiry)
	if err != nil {
		return nil, err
	}

	token, err := processor.CreateToken(ctx, application.TokenRequest{
		Number:      domain.DigitsOnly(card.Number),
		CVC:         card.CVC,
		ExpiryMonth: expiry.Month,
		ExpiryYear:  expiry.Year,
		Billing:     billing,
	})
	if err != nil {
		return nil, classifyProcessorFailure(err, domain.NewTokenizationError)
	}

	return token, nil
}
