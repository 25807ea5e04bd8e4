package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
)

// ErrorCategory describes who has to act on an error
type ErrorCategory string

const (
	CategoryBuyer          ErrorCategory = "BUYER"
	CategoryConfiguration  ErrorCategory = "CONFIGURATION"
	CategoryConflict       ErrorCategory = "CONFLICT"
	CategoryNotFound       ErrorCategory = "NOT_FOUND"
	CategoryProcessor      ErrorCategory = "PROCESSOR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// CategorizeError determines the error category for logging and metrics
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryInfrastructure
	}

	switch domain.ErrorCode(err) {
	case domain.ErrCodeMissingRequiredField,
		domain.ErrCodeInvalidCardExpiry,
		domain.ErrCodeUnsupportedCardBrand,
		domain.ErrCodeTokenizationFailed,
		domain.ErrCodeChargeFailed,
		domain.ErrCodeInvalidAmount:
		return CategoryBuyer
	case domain.ErrCodeOrderAlreadyPaid,
		domain.ErrCodeChargeInProgress,
		domain.ErrCodeInvalidState:
		return CategoryConflict
	case domain.ErrCodeOrderNotFound,
		domain.ErrCodeCustomerNotFound:
		return CategoryNotFound
	case domain.ErrCodeProcessorUnavailable,
		domain.ErrCodeCustomerUpdateFailed,
		domain.ErrCodeRefundFailed:
		return CategoryProcessor
	}

	if errors.Is(err, ErrChargeNotFound) || errors.Is(err, ErrCustomerNotFound) {
		return CategoryNotFound
	}

	if procErr, ok := IsProcessorError(err); ok {
		if procErr.Unavailable {
			return CategoryProcessor
		}
		if procErr.StatusCode == http.StatusUnauthorized || procErr.StatusCode == http.StatusForbidden {
			return CategoryConfiguration
		}
		return CategoryBuyer
	}

	if svcErr, ok := IsServiceError(err); ok {
		if svcErr.Code == ErrCodeInvalidInput {
			return CategoryBuyer
		}
	}

	return CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	switch domain.ErrorCode(err) {
	case domain.ErrCodeMissingRequiredField,
		domain.ErrCodeInvalidCardExpiry,
		domain.ErrCodeInvalidAmount:
		return http.StatusBadRequest
	case domain.ErrCodeUnsupportedCardBrand,
		domain.ErrCodeTokenizationFailed,
		domain.ErrCodeChargeFailed,
		domain.ErrCodeCustomerUpdateFailed,
		domain.ErrCodeRefundFailed:
		return http.StatusPaymentRequired
	case domain.ErrCodeOrderNotFound,
		domain.ErrCodeCustomerNotFound:
		return http.StatusNotFound
	case domain.ErrCodeOrderAlreadyPaid,
		domain.ErrCodeChargeInProgress,
		domain.ErrCodeInvalidState:
		return http.StatusConflict
	case domain.ErrCodeProcessorUnavailable:
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, ErrChargeNotFound), errors.Is(err, ErrCustomerNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// ToErrorCode returns a stable error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	if code := domain.ErrorCode(err); code != "" {
		return code
	}

	switch {
	case errors.Is(err, ErrChargeNotFound):
		return "CHARGE_NOT_FOUND"
	case errors.Is(err, ErrCustomerNotFound):
		return domain.ErrCodeCustomerNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}
