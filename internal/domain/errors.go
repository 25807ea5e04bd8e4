package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a checkout failure that is reported to the buyer or operator
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidCardExpiry    = "INVALID_CARD_EXPIRY"
	ErrCodeUnsupportedCardBrand = "UNSUPPORTED_CARD_BRAND"
	ErrCodeTokenizationFailed   = "TOKENIZATION_FAILED"
	ErrCodeCustomerUpdateFailed = "CUSTOMER_UPDATE_FAILED"
	ErrCodeChargeFailed         = "CHARGE_FAILED"
	ErrCodeRefundFailed         = "REFUND_FAILED"
	ErrCodeProcessorUnavailable = "PROCESSOR_UNAVAILABLE"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeOrderAlreadyPaid     = "ORDER_ALREADY_PAID"
	ErrCodeChargeInProgress     = "CHARGE_IN_PROGRESS"
	ErrCodeCustomerNotFound     = "CUSTOMER_NOT_FOUND"
	ErrCodeInvalidState         = "INVALID_STATE"
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidCardExpiryError(raw string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCardExpiry,
		Message: fmt.Sprintf("card expiry %q is not a valid MM / YY date", raw),
	}
}

func NewUnsupportedCardBrandError(brand Brand) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnsupportedCardBrand,
		Message: fmt.Sprintf("card brand %s is not accepted", brand),
	}
}

func NewTokenizationError(message string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeTokenizationFailed,
		Message: message,
		Err:     err,
	}
}

func NewCustomerUpdateError(message string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeCustomerUpdateFailed,
		Message: message,
		Err:     err,
	}
}

func NewChargeError(message string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeChargeFailed,
		Message: message,
		Err:     err,
	}
}

func NewRefundError(message string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeRefundFailed,
		Message: message,
		Err:     err,
	}
}

func NewProcessorUnavailableError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeProcessorUnavailable,
		Message: "payment processor is unavailable",
		Err:     err,
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s", amount),
	}
}

func NewOrderNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order %s not found", id),
	}
}

func NewOrderAlreadyPaidError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderAlreadyPaid,
		Message: fmt.Sprintf("order %s has already been paid", id),
	}
}

func NewChargeInProgressError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeChargeInProgress,
		Message: fmt.Sprintf("a charge for order %s is already in progress", id),
	}
}

func NewCustomerNotFoundError(userID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCustomerNotFound,
		Message: fmt.Sprintf("no processor customer recorded for user %s", userID),
	}
}

func NewInvalidStateError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: message,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ErrorCode returns the code of the outermost DomainError in err's chain, or "".
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
