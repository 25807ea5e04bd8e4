package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/telemetry"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest"
	"github.com/go-playground/validator"
	"github.com/oapi-codegen/runtime"
)

const maxBodyBytes = 1 << 20

type CheckoutUseCase interface {
	Checkout(ctx context.Context, cmd services.CheckoutCommand) (*services.CheckoutResult, error)
}

type OrderQuery interface {
	GetOrder(ctx context.Context, orderID string) (*services.OrderView, error)
}

type StatusChanger interface {
	ChangeStatus(ctx context.Context, cmd services.StatusChangeCommand) (*domain.OrderStatusChanged, error)
}

type Refunder interface {
	Refund(ctx context.Context, cmd services.RefundCommand) (*domain.Refund, error)
}

type Handlers struct {
	checkout CheckoutUseCase
	query    OrderQuery
	status   StatusChanger
	refunds  Refunder
	metrics  *telemetry.Metrics
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandlers(
	checkout CheckoutUseCase,
	query OrderQuery,
	status StatusChanger,
	refunds Refunder,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkout: checkout,
		query:    query,
		status:   status,
		refunds:  refunds,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/checkout", h.Checkout)
	mux.HandleFunc("GET /v1/orders/{orderId}", h.GetOrder)
	mux.HandleFunc("POST /v1/orders/{orderId}/status", h.ChangeStatus)
	mux.HandleFunc("POST /v1/orders/{orderId}/refunds", h.Refund)
}

func orderIDParam(r *http.Request) (string, error) {
	var orderID string
	err := runtime.BindStyledParameterWithLocation("simple", false, "orderId", runtime.ParamLocationPath, r.PathValue("orderId"), &orderID)
	if err != nil {
		return "", application.NewInvalidInputError(fmt.Errorf("invalid format for parameter orderId: %w", err))
	}
	if orderID == "" {
		return "", domain.NewMissingRequiredFieldError("orderId")
	}
	return orderID, nil
}

// decode reads a JSON body into dst and runs its validation tags. The returned
// details name each failing field.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) (map[string]string, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return nil, application.NewInvalidInputError(fmt.Errorf("malformed request body: %w", err))
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, application.NewInvalidInputError(err)
		}
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Namespace()] = fe.Tag()
		}
		return details, application.NewInvalidInputError(err)
	}
	return nil, nil
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	category := application.CategorizeError(err)
	attrs := []any{
		"operation", operation,
		"code", application.ToErrorCode(err),
		"category", category,
		"error", err,
	}
	if category == application.CategoryInfrastructure || category == application.CategoryConfiguration {
		h.logger.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		h.logger.WarnContext(r.Context(), "request failed", attrs...)
	}
	rest.WriteError(w, err)
}
