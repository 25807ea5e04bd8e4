package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/telemetry"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest"
)

// Refund godoc
// @Summary      Refund part or all of an order's charge
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Param        request body rest.RefundRequest true "Amount in major units"
// @Success      200 {object} rest.RefundResponse
// @Failure      400,402,404,502 {object} rest.ErrorResponse
// @Router       /v1/orders/{orderId}/refunds [post]
func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	var req rest.RefundRequest
	details, err := h.decode(w, r, &req)
	if err != nil {
		rest.WriteErrorDetails(w, err, details)
		return
	}

	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		h.metrics.RefundResults.WithLabelValues(domain.ErrCodeInvalidAmount).Inc()
		rest.WriteError(w, err)
		return
	}

	refund, err := h.refunds.Refund(r.Context(), services.RefundCommand{
		OrderID: orderID,
		Amount:  amount,
		Reason:  req.Reason,
	})
	h.metrics.RefundResults.WithLabelValues(telemetry.Result(application.ToErrorCode(err), err)).Inc()
	if err != nil {
		h.fail(w, r, "refund", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToRefundResponse(refund))
}
