package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest"
)

// Timeout bounds the whole request. The deadline reaches processor calls
// through the request context. A zero timeout disables the bound.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(rest.ErrorResponse{
		Success: false,
		Error: rest.ErrorDetail{
			Code:    application.ErrCodeTimeout,
			Message: "Request timed out",
		},
	})

	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.TimeoutHandler(next, timeout, string(body))
	}
}
