package rest

import (
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application/services"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/shopspring/decimal"
)

type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" validate:"omitempty,len=2"`
}

type BillingDTO struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone,omitempty"`
	Address   AddressDTO `json:"address"`
}

type ShippingDTO struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Address   AddressDTO `json:"address"`
}

type OrderDTO struct {
	ID            string      `json:"id" validate:"required"`
	Number        string      `json:"number"`
	Currency      string      `json:"currency" validate:"required,len=3"`
	Total         string      `json:"total" validate:"required"`
	TotalTax      string      `json:"total_tax"`
	TotalShipping string      `json:"total_shipping"`
	Billing       BillingDTO  `json:"billing"`
	Shipping      ShippingDTO `json:"shipping"`
}

// CardDTO fields are checked by the tokenizer, which reports the missing field by name.
type CardDTO struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVC    string `json:"cvc"`
}

type CheckoutRequest struct {
	Order     OrderDTO `json:"order"`
	Card      CardDTO  `json:"card"`
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
}

type CheckoutResponse struct {
	Result    string `json:"result"`
	Redirect  string `json:"redirect"`
	OrderID   string `json:"order_id"`
	Mode      string `json:"mode"`
	Reference string `json:"reference,omitempty"`
}

type StatusChangeRequest struct {
	Status string `json:"status" validate:"required"`
}

type StatusChangeResponse struct {
	OrderID    string    `json:"order_id"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type RefundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason" validate:"max=500"`
}

type RefundResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ChargeID  string    `json:"charge_id"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ChargeResponse struct {
	ID         string    `json:"id"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	CustomerID string    `json:"customer_id,omitempty"`
	Captured   bool      `json:"captured"`
	CreatedAt  time.Time `json:"created_at"`
}

type NoteResponse struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderResponse struct {
	ID               string           `json:"id"`
	Number           string           `json:"number"`
	BuyerID          string           `json:"buyer_id,omitempty"`
	Currency         string           `json:"currency"`
	Total            string           `json:"total"`
	Status           string           `json:"status"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	Paid             bool             `json:"paid"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	Charge           *ChargeResponse  `json:"charge,omitempty"`
	Refunds          []RefundResponse `json:"refunds"`
	Notes            []NoteResponse   `json:"notes"`
}

// ToCommand parses the submitted amounts. Tax and shipping default to zero.
func (r CheckoutRequest) ToCommand() (services.CheckoutCommand, error) {
	total, err := domain.ParseAmount(r.Order.Total)
	if err != nil {
		return services.CheckoutCommand{}, err
	}
	tax, err := optionalAmount(r.Order.TotalTax)
	if err != nil {
		return services.CheckoutCommand{}, err
	}
	shipping, err := optionalAmount(r.Order.TotalShipping)
	if err != nil {
		return services.CheckoutCommand{}, err
	}

	return services.CheckoutCommand{
		Order: services.OrderSnapshot{
			ID:            r.Order.ID,
			Number:        r.Order.Number,
			Currency:      r.Order.Currency,
			Total:         total,
			TotalTax:      tax,
			TotalShipping: shipping,
			Billing: domain.BillingIdentity{
				FirstName: r.Order.Billing.FirstName,
				LastName:  r.Order.Billing.LastName,
				Email:     r.Order.Billing.Email,
				Phone:     r.Order.Billing.Phone,
				Address:   r.Order.Billing.Address.toDomain(),
			},
			Shipping: domain.ShippingDetails{
				FirstName: r.Order.Shipping.FirstName,
				LastName:  r.Order.Shipping.LastName,
				Address:   r.Order.Shipping.Address.toDomain(),
			},
		},
		Card: domain.CardInput{
			Number: r.Card.Number,
			Expiry: r.Card.Expiry,
			CVC:    r.Card.CVC,
		},
		UserID:    r.UserID,
		SessionID: r.SessionID,
	}, nil
}

func optionalAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return domain.ParseAmount(raw)
}

func (a AddressDTO) toDomain() domain.Address {
	return domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func ToCheckoutResponse(result *services.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{
		Result:    result.Status,
		Redirect:  result.RedirectURL,
		OrderID:   result.OrderID,
		Mode:      result.Mode,
		Reference: result.Reference,
	}
}

func ToStatusChangeResponse(event *domain.OrderStatusChanged) StatusChangeResponse {
	return StatusChangeResponse{
		OrderID:    event.OrderID,
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		OccurredAt: event.OccurredAt,
	}
}

func ToRefundResponse(r *domain.Refund) RefundResponse {
	return RefundResponse{
		ID:        r.ID,
		OrderID:   r.OrderID,
		ChargeID:  r.ChargeID,
		Amount:    domain.FormatMinorUnits(r.AmountMinor, r.Currency),
		Currency:  r.Currency,
		Reason:    r.Reason,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func ToOrderResponse(view *services.OrderView) OrderResponse {
	o := view.Order
	resp := OrderResponse{
		ID:               o.ID,
		Number:           o.Number,
		BuyerID:          o.BuyerID,
		Currency:         o.Currency,
		Total:            o.Total.StringFixed(2),
		Status:           string(o.Status),
		PaymentReference: o.PaymentReference,
		Paid:             o.IsPaid(),
		PaidAt:           o.PaidAt,
		Refunds:          make([]RefundResponse, 0, len(view.Refunds)),
		Notes:            make([]NoteResponse, 0, len(view.Notes)),
	}
	if domain.IsZeroDecimal(o.Currency) {
		resp.Total = o.Total.StringFixed(0)
	}

	if c := view.Charge; c != nil {
		resp.Charge = &ChargeResponse{
			ID:         c.ID,
			Amount:     domain.FormatMinorUnits(c.AmountMinor, c.Currency),
			Currency:   c.Currency,
			CustomerID: c.CustomerID,
			Captured:   c.Captured,
			CreatedAt:  c.CreatedAt,
		}
	}
	for _, r := range view.Refunds {
		resp.Refunds = append(resp.Refunds, ToRefundResponse(r))
	}
	for _, n := range view.Notes {
		resp.Notes = append(resp.Notes, NoteResponse{Message: n.Message, CreatedAt: n.CreatedAt})
	}
	return resp
}
