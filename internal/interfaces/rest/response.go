package rest

import (
	"encoding/json"
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
)

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data})
}

// WriteError maps application errors to HTTP responses
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorDetails(w, err, nil)
}

func WriteErrorDetails(w http.ResponseWriter, err error, details map[string]string) {
	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    application.ToErrorCode(err),
			Message: publicMessage(err),
			Details: details,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(application.ToHTTPStatus(err))
	_ = json.NewEncoder(w).Encode(response)
}

// Internal failures are reported without their cause.
func publicMessage(err error) string {
	if svcErr, ok := application.IsServiceError(err); ok && svcErr.Code == application.ErrCodeInternal {
		return svcErr.Message
	}
	if application.ToErrorCode(err) == application.ErrCodeInternal {
		return "An internal error occurred"
	}
	return err.Error()
}
