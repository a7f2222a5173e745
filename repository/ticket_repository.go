package repository

import (
	"context"
	"errors"
	"fmt"

	"goldenticket/models"

	"github.com/jackc/pgx/v5"
)

const ticketColumns = `id, unique_user_id, period, numbers, purchase_time, payment_tx_id`

// TicketRepository implements ticket data access
type TicketRepository struct {
	q Queryable
}

// NewTicketRepository creates a ticket repository over a pool or transaction
func NewTicketRepository(q Queryable) *TicketRepository {
	return &TicketRepository{q: q}
}

// Create inserts a ticket and fills in its ID
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (unique_user_id, period, numbers, purchase_time, payment_tx_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, purchase_time
	`

	err := r.q.QueryRow(ctx, query,
		ticket.UniqueUserID,
		ticket.Period,
		ticket.Numbers.Int32s(),
		ticket.PurchaseTime,
		ticket.PaymentTxID,
	).Scan(&ticket.ID, &ticket.PurchaseTime)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", mapConstraintError(err))
	}
	return nil
}

// GetByID retrieves a ticket by its ID
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %d: %w", id, err)
	}
	return ticket, nil
}

// GetByPaymentTxID retrieves the ticket a payment produced
func (r *TicketRepository) GetByPaymentTxID(ctx context.Context, paymentTxID string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE payment_tx_id = $1`

	ticket, err := scanTicket(r.q.QueryRow(ctx, query, paymentTxID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket for payment %s: %w", paymentTxID, err)
	}
	return ticket, nil
}

// GetByUserForPeriod returns a user's tickets for a period ordered by purchase time
func (r *TicketRepository) GetByUserForPeriod(ctx context.Context, uniqueUserID string, period string) ([]*models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE unique_user_id = $1 AND period = $2
		ORDER BY purchase_time ASC, id ASC
	`
	return r.list(ctx, query, uniqueUserID, period)
}

// GetByPeriod returns all tickets for a period ordered by purchase time
func (r *TicketRepository) GetByPeriod(ctx context.Context, period string) ([]*models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE period = $1
		ORDER BY purchase_time ASC, id ASC
	`
	return r.list(ctx, query, period)
}

// CountByPeriod returns the number of tickets sold in a period
func (r *TicketRepository) CountByPeriod(ctx context.Context, period string) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE period = $1`, period).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets for period %s: %w", period, err)
	}
	return count, nil
}

func (r *TicketRepository) list(ctx context.Context, query string, args ...any) ([]*models.Ticket, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*models.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var ticket models.Ticket
	var numbers []int32
	err := row.Scan(
		&ticket.ID,
		&ticket.UniqueUserID,
		&ticket.Period,
		&numbers,
		&ticket.PurchaseTime,
		&ticket.PaymentTxID,
	)
	if err != nil {
		return nil, err
	}

	ticket.Numbers, err = models.TicketNumbersFromInt32s(numbers)
	if err != nil {
		return nil, fmt.Errorf("ticket %d has corrupt numbers: %w", ticket.ID, err)
	}
	return &ticket, nil
}
