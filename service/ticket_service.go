package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"goldenticket/events"
	"goldenticket/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// maxPeriodAttempts bounds how often Issue re-reads the clock after losing a race with settlement
const maxPeriodAttempts = 3

// ticketService implements TicketService
type ticketService struct {
	uowFactory UnitOfWorkFactory
	verifier   PaymentVerifier
	generator  NumberGenerator
	clock      *PeriodClock
}

// NewTicketService creates a new ticket service
func NewTicketService(uowFactory UnitOfWorkFactory, verifier PaymentVerifier, generator NumberGenerator, clock *PeriodClock) TicketService {
	return &ticketService{
		uowFactory: uowFactory,
		verifier:   verifier,
		generator:  generator,
		clock:      clock,
	}
}

// Issue runs replay check, payment verification, per-period dedupe, number
// generation, ticket insert and ledger mark, in that order. Only the insert
// and the ledger mark write anything. Verification happens with no transaction
// open since it may wait on a remote node. The insert holds the period's shared
// lock and refuses periods that already have a draw result.
func (s *ticketService) Issue(ctx context.Context, uniqueUserID, paymentTxID string, expectedAmount decimal.Decimal) (*models.Ticket, error) {
	uniqueUserID = strings.TrimSpace(uniqueUserID)
	if uniqueUserID == "" {
		return nil, fmt.Errorf("%w: unique user id is required", ErrInvalidInput)
	}
	txID, err := models.NormalizePaymentTxID(paymentTxID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !expectedAmount.IsPositive() {
		return nil, fmt.Errorf("%w: expected amount must be positive", ErrInvalidInput)
	}

	logger := log.WithFields(log.Fields{
		"uniqueUserID": uniqueUserID,
		"paymentTxID":  txID,
	})

	if err := s.checkNotProcessed(ctx, txID); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Warn("Rejected replayed payment transaction")
		}
		return nil, err
	}

	if err := s.verifier.VerifyPayment(ctx, txID, expectedAmount); err != nil {
		logger.WithError(err).Warn("Payment verification failed")
		return nil, fmt.Errorf("%w: %w", ErrPaymentInvalid, err)
	}

	ticket, err := s.issueInOpenPeriod(ctx, uniqueUserID, txID)
	if err != nil {
		if errors.Is(err, ErrPaymentTxConflict) {
			logger.Warn("Lost payment transaction race to a concurrent request")
			return nil, s.alreadyProcessed(ctx, txID)
		}
		if errors.Is(err, ErrAlreadyProcessed) {
			logger.Warn("Payment transaction was processed by a concurrent request")
		}
		if errors.Is(err, ErrDuplicatePurchase) {
			// The ticket blocking this one may be the same payment committed by a concurrent retry
			if replay := s.checkNotProcessed(ctx, txID); errors.Is(replay, ErrAlreadyProcessed) {
				return nil, replay
			}
			logger.Warn("Identity already holds a ticket for period")
		}
		return nil, err
	}

	s.markProcessed(ctx, ticket)

	logger.WithFields(log.Fields{
		"ticketID": ticket.ID,
		"period":   ticket.Period,
		"numbers":  ticket.Numbers.String(),
	}).Info("Issued ticket")

	return ticket, nil
}

// issueInOpenPeriod creates the ticket in the period the clock reports. When that period
// settles between reading the clock and taking the period lock, the clock is read again.
func (s *ticketService) issueInOpenPeriod(ctx context.Context, uniqueUserID, txID string) (*models.Ticket, error) {
	for attempt := 1; ; attempt++ {
		now := s.clock.Now()
		period := s.clock.CurrentPeriod(now)

		ticket, err := s.createTicket(ctx, uniqueUserID, period, txID, now)
		if !errors.Is(err, ErrPeriodClosed) || attempt == maxPeriodAttempts {
			return ticket, err
		}
		log.WithFields(log.Fields{
			"paymentTxID": txID,
			"period":      period,
			"attempt":     attempt,
		}).Warn("Period settled during purchase, retrying in the open period")
	}
}

// checkNotProcessed consults the ledger first and falls back to the ticket table,
// which also catches tickets whose ledger mark never landed.
func (s *ticketService) checkNotProcessed(ctx context.Context, txID string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	payment, err := uow.ProcessedPaymentRepository().GetByTxID(ctx, txID)
	if err != nil {
		return fmt.Errorf("failed to check payment ledger: %w", err)
	}
	if payment != nil {
		return &AlreadyProcessedError{PaymentTxID: txID, TicketID: payment.TicketID}
	}

	ticket, err := uow.TicketRepository().GetByPaymentTxID(ctx, txID)
	if err != nil {
		return fmt.Errorf("failed to check existing tickets: %w", err)
	}
	if ticket != nil {
		return &AlreadyProcessedError{PaymentTxID: txID, TicketID: ticket.ID}
	}
	return nil
}

func (s *ticketService) createTicket(ctx context.Context, uniqueUserID, period, txID string, now time.Time) (*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Held until commit so settlement of the period waits for this insert
	if err := uow.DrawResultRepository().LockPeriodShared(ctx, period); err != nil {
		return nil, err
	}
	settled, err := uow.DrawResultRepository().GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to check draw result: %w", err)
	}
	if settled != nil {
		return nil, fmt.Errorf("%w: %s", ErrPeriodClosed, period)
	}

	// A concurrent request for the same payment may have committed while this one was verifying
	prior, err := uow.TicketRepository().GetByPaymentTxID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing tickets: %w", err)
	}
	if prior != nil {
		return nil, &AlreadyProcessedError{PaymentTxID: txID, TicketID: prior.ID}
	}

	existing, err := uow.TicketRepository().GetByUserForPeriod(ctx, uniqueUserID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to check tickets for period: %w", err)
	}
	for _, t := range existing {
		if t.PaymentTxID == txID {
			return nil, &AlreadyProcessedError{PaymentTxID: txID, TicketID: t.ID}
		}
	}
	if len(existing) > 0 {
		return nil, ErrDuplicatePurchase
	}

	numbers, err := s.generator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket numbers: %w", err)
	}

	ticket, err := models.NewTicket(uniqueUserID, period, numbers, now, txID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := uow.TicketRepository().Create(ctx, ticket); err != nil {
		if errors.Is(err, ErrUserPeriodConflict) {
			return nil, ErrDuplicatePurchase
		}
		return nil, err
	}

	uow.EventBus().Publish(events.TicketIssuedEvent{
		TicketID:     ticket.ID,
		UniqueUserID: ticket.UniqueUserID,
		Period:       ticket.Period,
		Numbers:      ticket.Numbers,
		PaymentTxID:  ticket.PaymentTxID,
		PurchaseTime: ticket.PurchaseTime,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ticket, nil
}

// alreadyProcessed looks up the ticket that won a payment race so the caller can surface it
func (s *ticketService) alreadyProcessed(ctx context.Context, txID string) error {
	err := s.checkNotProcessed(ctx, txID)
	if errors.Is(err, ErrAlreadyProcessed) {
		return err
	}
	if err != nil {
		log.WithError(err).WithField("paymentTxID", txID).Warn("Failed to look up ticket for processed payment")
	}
	return &AlreadyProcessedError{PaymentTxID: txID}
}

// markProcessed writes the ledger row. The ticket's own unique payment_tx_id is what
// guarantees at-most-once issuance, so a failure here is logged and otherwise ignored.
func (s *ticketService) markProcessed(ctx context.Context, ticket *models.Ticket) {
	logger := log.WithFields(log.Fields{
		"paymentTxID": ticket.PaymentTxID,
		"ticketID":    ticket.ID,
	})

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		logger.WithError(err).Error("Failed to begin ledger transaction")
		return
	}
	defer uow.Rollback()

	err := uow.ProcessedPaymentRepository().Create(ctx, &models.ProcessedPayment{
		PaymentTxID: ticket.PaymentTxID,
		TicketID:    ticket.ID,
		ProcessedAt: ticket.PurchaseTime,
	})
	if err != nil {
		if errors.Is(err, ErrPaymentTxConflict) {
			logger.Debug("Payment already present in ledger")
			return
		}
		logger.WithError(err).Error("Failed to record processed payment")
		return
	}

	if err := uow.Commit(); err != nil {
		logger.WithError(err).Error("Failed to commit processed payment")
	}
}

// GetTicketsForUser returns a user's tickets for a period
func (s *ticketService) GetTicketsForUser(ctx context.Context, uniqueUserID, period string) ([]*models.Ticket, error) {
	uniqueUserID = strings.TrimSpace(uniqueUserID)
	if uniqueUserID == "" {
		return nil, fmt.Errorf("%w: unique user id is required", ErrInvalidInput)
	}
	if _, _, err := ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.TicketRepository().GetByUserForPeriod(ctx, uniqueUserID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for user: %w", err)
	}
	return tickets, nil
}

// GetTicketsForPeriod returns all tickets for a period
func (s *ticketService) GetTicketsForPeriod(ctx context.Context, period string) ([]*models.Ticket, error) {
	if _, _, err := ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.TicketRepository().GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for period: %w", err)
	}
	return tickets, nil
}
