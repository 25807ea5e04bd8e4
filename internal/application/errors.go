package application

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrChargeNotFound   = errors.New("charge not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// ProcessorError is a failure reported by the card processor or by the transport to it.
type ProcessorError struct {
	Code       string
	Message    string
	StatusCode int
	// Unavailable marks transport failures and processor-side outages, as
	// opposed to a definitive rejection of the request.
	Unavailable bool
	Err         error
}

func (e *ProcessorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("processor error [%s]: %s (status: %d): %v", e.Code, e.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("processor error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

func IsProcessorError(err error) (*ProcessorError, bool) {
	var procErr *ProcessorError
	ok := errors.As(err, &procErr)
	return procErr, ok
}

// APPLICATION-LEVEL ERRORS

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "TIMEOUT"
)

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewTimeoutError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeTimeout,
		Message:    "Request timed out",
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
