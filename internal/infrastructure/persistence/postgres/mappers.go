package postgres

import (
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   d.Coefficient(),
		Exp:   d.Exponent(),
		Valid: true,
	}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func toAddressDocument(a domain.Address) addressDocument {
	return addressDocument{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func (a addressDocument) toDomain() domain.Address {
	return domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// toOrderModel: maps domain order to db model
func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:            o.ID,
		Number:        o.Number,
		BuyerID:       o.BuyerID,
		Currency:      o.Currency,
		Total:         toNumeric(o.Total),
		TotalTax:      toNumeric(o.TotalTax),
		TotalShipping: toNumeric(o.TotalShipping),
		Billing: billingDocument{
			FirstName: o.Billing.FirstName,
			LastName:  o.Billing.LastName,
			Email:     o.Billing.Email,
			Phone:     o.Billing.Phone,
			Address:   toAddressDocument(o.Billing.Address),
		},
		Shipping: shippingDocument{
			FirstName: o.Shipping.FirstName,
			LastName:  o.Shipping.LastName,
			Address:   toAddressDocument(o.Shipping.Address),
		},
		Status:           string(o.Status),
		PaymentReference: o.PaymentReference,
		ChargeID:         o.ChargeID,
		PaidAt:           o.PaidAt,
		ChargeClaimedAt:  o.ChargeClaimedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

// toOrderDomain: maps db model to domain order
func toOrderDomain(m OrderModel) *domain.Order {
	return &domain.Order{
		ID:            m.ID,
		Number:        m.Number,
		BuyerID:       m.BuyerID,
		Currency:      m.Currency,
		Total:         fromNumeric(m.Total),
		TotalTax:      fromNumeric(m.TotalTax),
		TotalShipping: fromNumeric(m.TotalShipping),
		Billing: domain.BillingIdentity{
			FirstName: m.Billing.FirstName,
			LastName:  m.Billing.LastName,
			Email:     m.Billing.Email,
			Phone:     m.Billing.Phone,
			Address:   m.Billing.Address.toDomain(),
		},
		Shipping: domain.ShippingDetails{
			FirstName: m.Shipping.FirstName,
			LastName:  m.Shipping.LastName,
			Address:   m.Shipping.Address.toDomain(),
		},
		Status:           domain.OrderStatus(m.Status),
		PaymentReference: m.PaymentReference,
		ChargeID:         m.ChargeID,
		PaidAt:           m.PaidAt,
		ChargeClaimedAt:  m.ChargeClaimedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toChargeDomain(m ChargeModel) *domain.Charge {
	return &domain.Charge{
		ID:          m.ID,
		OrderID:     m.OrderID,
		AmountMinor: m.AmountMinor,
		Currency:    m.Currency,
		CustomerID:  m.CustomerID,
		Captured:    m.Captured,
		Paid:        m.Paid,
		CreatedAt:   m.CreatedAt,
	}
}

func toRefundDomain(m RefundModel) *domain.Refund {
	return &domain.Refund{
		ID:          m.ID,
		OrderID:     m.OrderID,
		ChargeID:    m.ChargeID,
		AmountMinor: m.AmountMinor,
		Currency:    m.Currency,
		Reason:      m.Reason,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}

func toCustomerDomain(m CustomerModel) *domain.CustomerRecord {
	return &domain.CustomerRecord{
		UserID:      m.UserID,
		CustomerID:  m.CustomerID,
		Fingerprint: m.Fingerprint,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
