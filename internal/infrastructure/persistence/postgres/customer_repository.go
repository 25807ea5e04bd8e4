package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CustomerRepository struct {
	q Executor
}

func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{q: db.Pool}
}

func (r *CustomerRepository) FindByUserID(ctx context.Context, userID string) (*domain.CustomerRecord, error) {
	query := `
		SELECT user_id, customer_id, fingerprint, created_at, updated_at
		FROM customers WHERE user_id = $1
	`

	var m CustomerModel
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&m.UserID, &m.CustomerID, &m.Fingerprint, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return toCustomerDomain(m), nil
}

// Save upserts the user's processor customer link.
func (r *CustomerRepository) Save(ctx context.Context, record *domain.CustomerRecord) error {
	query := `
		INSERT INTO customers (user_id, customer_id, fingerprint)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			fingerprint = EXCLUDED.fingerprint,
			updated_at  = now()
	`

	if _, err := r.q.Exec(ctx, query, record.UserID, record.CustomerID, record.Fingerprint); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) UpdateFingerprint(ctx context.Context, userID, fingerprint string) error {
	query := `
		UPDATE customers SET fingerprint = $2, updated_at = now()
		WHERE user_id = $1
	`

	tag, err := r.q.Exec(ctx, query, userID, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to update fingerprint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrCustomerNotFound
	}
	return nil
}
