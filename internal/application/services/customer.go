package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// CustomerService keeps one processor customer per authenticated buyer, with
// the buyer's most recent card as its default source.
type CustomerService struct {
	directory application.CustomerDirectory
	locker    application.Locker
	clock     Clock
}

func NewCustomerService(directory application.CustomerDirectory, locker application.Locker) *CustomerService {
	return &CustomerService{
		directory: directory,
		locker:    locker,
		clock:     systemClock,
	}
}

func customerLockKey(userID string) string {
	return "customer:" + userID
}

// EnsureCustomer returns the buyer's processor customer ID, creating the
// customer on first use and swapping its default source when the card changed.
func (s *CustomerService) EnsureCustomer(
	ctx context.Context,
	processor application.Processor,
	userID string,
	token *domain.Token,
	billing domain.BillingIdentity,
) (string, error) {
	if userID == "" {
		return "", domain.NewMissingRequiredFieldError("user ID")
	}
	if token == nil || token.ID == "" {
		return "", domain.NewMissingRequiredFieldError("card token")
	}

	unlock, err := s.locker.Lock(ctx, customerLockKey(userID))
	if err != nil {
		return "", fmt.Errorf("lock customer record for user %s: %w", userID, err)
	}
	defer unlock()

	record, err := s.directory.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, application.ErrCustomerNotFound) {
			return s.create(ctx, processor, userID, token, billing)
		}
		return "", fmt.Errorf("find customer record for user %s: %w", userID, err)
	}

	if record.Fingerprint == token.Fingerprint {
		return record.CustomerID, nil
	}

	return s.replaceSource(ctx, processor, record, token)
}

func (s *CustomerService) create(
	ctx context.Context,
	processor application.Processor,
	userID string,
	token *domain.Token,
	billing domain.BillingIdentity,
) (string, error) {
	ctx = submitted(ctx)
	customer, err := processor.CreateCustomer(ctx, application.CustomerRequest{
		Email:       billing.Email,
		Description: billing.FullName(),
		TokenID:     token.ID,
	})
	if err != nil {
		return "", classifyProcessorFailure(err, domain.NewCustomerUpdateError)
	}

	now := s.clock()
	record := &domain.CustomerRecord{
		UserID:      userID,
		CustomerID:  customer.ID,
		Fingerprint: token.Fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.directory.Save(ctx, record); err != nil {
		return "", fmt.Errorf("save customer record for user %s: %w", userID, err)
	}

	return customer.ID, nil
}

func (s *CustomerService) replaceSource(
	ctx context.Context,
	processor application.Processor,
	record *domain.CustomerRecord,
	token *domain.Token,
) (string, error) {
	customer, err := processor.GetCustomer(ctx, record.CustomerID)
	if err != nil {
		return "", classifyProcessorFailure(err, domain.NewCustomerUpdateError)
	}
	if customer.Deleted {
		return "", domain.NewCustomerUpdateError(
			fmt.Sprintf("processor customer %s has been deleted", record.CustomerID), nil)
	}

	ctx = submitted(ctx)
	if _, err := processor.UpdateCustomerSource(ctx, customer.ID, token.ID); err != nil {
		return "", classifyProcessorFailure(err, domain.NewCustomerUpdateError)
	}

	if err := s.directory.UpdateFingerprint(ctx, record.UserID, token.Fingerprint); err != nil {
		return "", fmt.Errorf("update card fingerprint for user %s: %w", record.UserID, err)
	}

	return customer.ID, nil
}
