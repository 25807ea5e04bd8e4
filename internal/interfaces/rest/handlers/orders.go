package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/DanielPopoola/ficmart-checkout/internal/interfaces/rest"
)

// GetOrder godoc
// @Summary      Order with its charge, refunds and notes
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} rest.OrderResponse
// @Failure      404 {object} rest.ErrorResponse
// @Router       /v1/orders/{orderId} [get]
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	view, err := h.query.GetOrder(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, "get_order", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToOrderResponse(view))
}

// ChangeStatus records a lifecycle transition and publishes it. Posting the
// same status again re-sends the event.
func (h *Handlers) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	var req rest.StatusChangeRequest
	details, err := h.decode(w, r, &req)
	if err != nil {
		rest.WriteErrorDetails(w, err, details)
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	event, err := h.status.ChangeStatus(r.Context(), services.StatusChangeCommand{
		OrderID: orderID,
		Status:  status,
	})
	if err != nil {
		h.fail(w, r, "change_status", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.ToStatusChangeResponse(event))
}
