package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `
	id, number, buyer_id, currency, total, total_tax, total_shipping,
	billing, shipping, status, payment_reference, charge_id,
	paid_at, charge_claimed_at, created_at, updated_at
`

type OrderRepository struct {
	pool *pgxpool.Pool
	q    Executor
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{pool: db.Pool, q: db.Pool}
}

// Register inserts the order, or refreshes the stored snapshot of an order
// that has neither been paid nor claimed for charging.
func (r *OrderRepository) Register(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			number         = EXCLUDED.number,
			buyer_id       = EXCLUDED.buyer_id,
			currency       = EXCLUDED.currency,
			total          = EXCLUDED.total,
			total_tax      = EXCLUDED.total_tax,
			total_shipping = EXCLUDED.total_shipping,
			billing        = EXCLUDED.billing,
			shipping       = EXCLUDED.shipping,
			updated_at     = now()
		WHERE orders.paid_at IS NULL AND orders.charge_claimed_at IS NULL
	`

	m := toOrderModel(order)
	_, err := r.q.Exec(ctx, query,
		m.ID,
		m.Number,
		m.BuyerID,
		m.Currency,
		m.Total,
		m.TotalTax,
		m.TotalShipping,
		m.Billing,
		m.Shipping,
		m.Status,
		m.PaymentReference,
		m.ChargeID,
		m.PaidAt,
		m.ChargeClaimedAt,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register order: %w", err)
	}

	return r.FindByID(ctx, order.ID)
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	row := r.q.QueryRow(ctx, query, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewOrderNotFoundError(id)
	}
	return order, err
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, paymentReference string) error {
	query := `
		UPDATE orders
		SET status = $2, payment_reference = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, id, string(status), paymentReference)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderNotFoundError(id)
	}
	return nil
}

// ClaimCharge stamps charge_claimed_at when the order is neither paid nor
// already claimed. Exactly one concurrent caller observes true.
func (r *OrderRepository) ClaimCharge(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE orders
		SET charge_claimed_at = now(), updated_at = now()
		WHERE id = $1 AND paid_at IS NULL AND charge_claimed_at IS NULL
	`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim charge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) ReleaseChargeClaim(ctx context.Context, id string) error {
	query := `
		UPDATE orders
		SET charge_claimed_at = NULL, updated_at = now()
		WHERE id = $1 AND paid_at IS NULL
	`

	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to release charge claim: %w", err)
	}
	return nil
}

// CompleteCharge records the charge and stamps the paid marker in one transaction.
func (r *OrderRepository) CompleteCharge(ctx context.Context, charge *domain.Charge) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	createdAt := charge.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO charges (id, order_id, amount_minor, currency, customer_id, captured, paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		charge.ID,
		charge.OrderID,
		charge.AmountMinor,
		charge.Currency,
		charge.CustomerID,
		charge.Captured,
		charge.Paid,
		createdAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewOrderAlreadyPaidError(charge.OrderID)
		}
		return fmt.Errorf("failed to insert charge: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET paid_at = now(), charge_id = $2, charge_claimed_at = NULL, updated_at = now()
		WHERE id = $1 AND paid_at IS NULL
	`, charge.OrderID, charge.ID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewOrderAlreadyPaidError(charge.OrderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindCharge(ctx context.Context, orderID string) (*domain.Charge, error) {
	query := `
		SELECT id, order_id, amount_minor, currency, customer_id, captured, paid, created_at
		FROM charges WHERE order_id = $1
	`

	var m ChargeModel
	err := r.q.QueryRow(ctx, query, orderID).Scan(
		&m.ID, &m.OrderID, &m.AmountMinor, &m.Currency, &m.CustomerID, &m.Captured, &m.Paid, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrChargeNotFound
		}
		return nil, fmt.Errorf("failed to find charge: %w", err)
	}
	return toChargeDomain(m), nil
}

func (r *OrderRepository) SaveRefund(ctx context.Context, refund *domain.Refund) error {
	query := `
		INSERT INTO refunds (id, order_id, charge_id, amount_minor, currency, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	createdAt := refund.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.q.Exec(ctx, query,
		refund.ID,
		refund.OrderID,
		refund.ChargeID,
		refund.AmountMinor,
		refund.Currency,
		refund.Reason,
		refund.Status,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save refund: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListRefunds(ctx context.Context, orderID string) ([]*domain.Refund, error) {
	query := `
		SELECT id, order_id, charge_id, amount_minor, currency, reason, status, created_at
		FROM refunds WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query refunds by order_id: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Refund, error) {
		var m RefundModel
		err := row.Scan(
			&m.ID, &m.OrderID, &m.ChargeID, &m.AmountMinor, &m.Currency, &m.Reason, &m.Status, &m.CreatedAt,
		)
		return toRefundDomain(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("error occurred while scanning refunds: %w", err)
	}
	return results, nil
}

func (r *OrderRepository) AddNote(ctx context.Context, orderID, message string) error {
	query := `INSERT INTO order_notes (order_id, message) VALUES ($1, $2)`

	if _, err := r.q.Exec(ctx, query, orderID, message); err != nil {
		return fmt.Errorf("failed to add order note: %w", err)
	}
	return nil
}

func (r *OrderRepository) ListNotes(ctx context.Context, orderID string) ([]*domain.OrderNote, error) {
	query := `
		SELECT id, order_id, message, created_at
		FROM order_notes WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query notes by order_id: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.OrderNote, error) {
		var n domain.OrderNote
		err := row.Scan(&n.ID, &n.OrderID, &n.Message, &n.CreatedAt)
		return &n, err
	})
	if err != nil {
		return nil, fmt.Errorf("error occurred while scanning notes: %w", err)
	}
	return results, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var m OrderModel
	err := row.Scan(
		&m.ID, &m.Number, &m.BuyerID, &m.Currency, &m.Total, &m.TotalTax, &m.TotalShipping,
		&m.Billing, &m.Shipping, &m.Status, &m.PaymentReference, &m.ChargeID,
		&m.PaidAt, &m.ChargeClaimedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return toOrderDomain(m), nil
}
