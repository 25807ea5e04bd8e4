package processor

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/stripe/stripe-go/v72"
)

// mapError converts a stripe-go failure into an application.ProcessorError.
// Anything that is not a definitive answer from the API is reported as unavailable.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &application.ProcessorError{
			Code:        "timeout",
			Message:     "request to the payment processor did not complete",
			Unavailable: true,
			Err:         err,
		}
	}

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &application.ProcessorError{
			Code:        "network_error",
			Message:     "could not reach the payment processor",
			Unavailable: true,
			Err:         err,
		}
	}

	code := string(stripeErr.Code)
	if code == "" {
		code = string(stripeErr.Type)
	}

	return &application.ProcessorError{
		Code:        code,
		Message:     stripeErr.Msg,
		StatusCode:  stripeErr.HTTPStatusCode,
		Unavailable: isUnavailable(stripeErr),
		Err:         err,
	}
}

func isUnavailable(e *stripe.Error) bool {
	if e.HTTPStatusCode >= http.StatusInternalServerError {
		return true
	}
	if e.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.Type == stripe.ErrorTypeAPI && e.HTTPStatusCode == 0
}
