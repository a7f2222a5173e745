package service

import (
	"context"

	"goldenticket/events"
	"goldenticket/models"

	"github.com/shopspring/decimal"
)

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// Create inserts the ticket and sets its ID. Returns ErrPaymentTxConflict or
	// ErrUserPeriodConflict when a uniqueness constraint rejects the row.
	Create(ctx context.Context, ticket *models.Ticket) error

	// GetByID retrieves a ticket by its ID
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)

	// GetByPaymentTxID retrieves the ticket a payment produced
	GetByPaymentTxID(ctx context.Context, paymentTxID string) (*models.Ticket, error)

	// GetByUserForPeriod returns a user's tickets for one period, oldest first
	GetByUserForPeriod(ctx context.Context, uniqueUserID string, period string) ([]*models.Ticket, error)

	// GetByPeriod returns every ticket for a period, oldest first
	GetByPeriod(ctx context.Context, period string) ([]*models.Ticket, error)

	// CountByPeriod returns the number of tickets sold for a period
	CountByPeriod(ctx context.Context, period string) (int64, error)
}

// ProcessedPaymentRepository defines the interface for the payment ledger
type ProcessedPaymentRepository interface {
	// GetByTxID returns the ledger entry for a transaction, or nil
	GetByTxID(ctx context.Context, paymentTxID string) (*models.ProcessedPayment, error)

	// Create records a processed payment. Returns ErrPaymentTxConflict if already recorded.
	Create(ctx context.Context, payment *models.ProcessedPayment) error
}

// DrawResultRepository defines the interface for draw result data access
type DrawResultRepository interface {
	// LockPeriod serializes settlement of one period until the transaction ends
	LockPeriod(ctx context.Context, period string) error

	// LockPeriodShared blocks settlement of the period, but not other holders of
	// the shared lock, until the transaction ends
	LockPeriodShared(ctx context.Context, period string) error

	// GetByPeriod returns the result for a period with its winners, or nil
	GetByPeriod(ctx context.Context, period string) (*models.DrawResult, error)

	// Create inserts the result and its winners if the period has none yet.
	// Returns ErrDrawResultConflict when another result already exists.
	Create(ctx context.Context, result *models.DrawResult) error

	// GetLatest returns the most recently drawn result, or nil
	GetLatest(ctx context.Context) (*models.DrawResult, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	TicketRepository() TicketRepository
	ProcessedPaymentRepository() ProcessedPaymentRepository
	DrawResultRepository() DrawResultRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// PaymentVerifier confirms an on-chain transfer of exactly expectedAmount to the configured receiver
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, paymentTxID string, expectedAmount decimal.Decimal) error
}

// IdentityVerifier validates a proof of personhood and returns the stable per-person identifier
type IdentityVerifier interface {
	VerifyProof(ctx context.Context, proof models.IdentityProof) (string, error)
}

// NumberGenerator draws ticket and winning numbers
type NumberGenerator interface {
	Generate() (models.TicketNumbers, error)
}

// TicketService defines the interface for ticket issuance and lookup
type TicketService interface {
	// Issue converts a verified payment into a ticket for the current period
	Issue(ctx context.Context, uniqueUserID, paymentTxID string, expectedAmount decimal.Decimal) (*models.Ticket, error)

	// GetTicketsForUser returns a user's tickets for a period
	GetTicketsForUser(ctx context.Context, uniqueUserID, period string) ([]*models.Ticket, error)

	// GetTicketsForPeriod returns all tickets for a period
	GetTicketsForPeriod(ctx context.Context, period string) ([]*models.Ticket, error)
}

// SettlementService defines the interface for running weekly draws
type SettlementService interface {
	// Settle draws and stores the result for a closed period, or returns the stored one
	Settle(ctx context.Context, period string) (*models.DrawResult, error)
}

// ResultsService defines the interface for reading settled draws
type ResultsService interface {
	// GetResult returns the result for a period or ErrNotFound
	GetResult(ctx context.Context, period string) (*models.DrawResult, error)

	// GetLatestResult returns the most recently settled result, or nil before the first draw
	GetLatestResult(ctx context.Context) (*models.DrawResult, error)
}
