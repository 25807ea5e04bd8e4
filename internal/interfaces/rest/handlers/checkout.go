package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/telemetry"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest"
)

// Checkout godoc
// @Summary      Pay for an order by card
// @Accept       json
// @Produce      json
// @Param        request body rest.CheckoutRequest true "Order snapshot and card"
// @Success      200 {object} rest.CheckoutResponse
// @Failure      400,402,409,502 {object} rest.ErrorResponse
// @Router       /v1/checkout [post]
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req rest.CheckoutRequest
	details, err := h.decode(w, r, &req)
	if err != nil {
		h.metrics.CheckoutResults.WithLabelValues(telemetry.Result(application.ToErrorCode(err), err)).Inc()
		rest.WriteErrorDetails(w, err, details)
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		h.metrics.CheckoutResults.WithLabelValues(telemetry.Result(domain.ErrorCode(err), err)).Inc()
		rest.WriteError(w, err)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), cmd)
	h.metrics.CheckoutResults.WithLabelValues(telemetry.Result(application.ToErrorCode(err), err)).Inc()
	if err != nil {
		h.fail(w, r, "checkout", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToCheckoutResponse(result))
}
