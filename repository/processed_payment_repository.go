package repository

import (
	"context"
	"errors"
	"fmt"

	"goldenticket/models"

	"github.com/jackc/pgx/v5"
)

// ProcessedPaymentRepository implements the payment ledger
type ProcessedPaymentRepository struct {
	q Queryable
}

// NewProcessedPaymentRepository creates a payment ledger repository
func NewProcessedPaymentRepository(q Queryable) *ProcessedPaymentRepository {
	return &ProcessedPaymentRepository{q: q}
}

// GetByTxID returns the ledger entry for a transaction, or nil
func (r *ProcessedPaymentRepository) GetByTxID(ctx context.Context, paymentTxID string) (*models.ProcessedPayment, error) {
	query := `
		SELECT payment_tx_id, ticket_id, processed_at
		FROM processed_payments
		WHERE payment_tx_id = $1
	`

	var payment models.ProcessedPayment
	err := r.q.QueryRow(ctx, query, paymentTxID).Scan(&payment.PaymentTxID, &payment.TicketID, &payment.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processed payment %s: %w", paymentTxID, err)
	}
	return &payment, nil
}

// Create records a processed payment
func (r *ProcessedPaymentRepository) Create(ctx context.Context, payment *models.ProcessedPayment) error {
	query := `
		INSERT INTO processed_payments (payment_tx_id, ticket_id, processed_at)
		VALUES ($1, $2, $3)
		RETURNING processed_at
	`

	err := r.q.QueryRow(ctx, query, payment.PaymentTxID, payment.TicketID, payment.ProcessedAt).Scan(&payment.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to record processed payment: %w", mapConstraintError(err))
	}
	return nil
}
