package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldenticket/events"
	"goldenticket/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// SettlementConfig holds the economics of a draw
type SettlementConfig struct {
	TicketPrice decimal.Decimal
	PrizeSplit  PrizeSplit
}

// settlementService implements SettlementService
type settlementService struct {
	uowFactory UnitOfWorkFactory
	generator  NumberGenerator
	clock      *PeriodClock
	config     SettlementConfig
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory, generator NumberGenerator, clock *PeriodClock, config SettlementConfig) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
		generator:  generator,
		clock:      clock,
		config:     config,
	}
}

// Settle runs the draw for a period in a single transaction. The period lock makes
// concurrent calls queue up; whichever runs second finds the stored result and returns it.
func (s *settlementService) Settle(ctx context.Context, period string) (*models.DrawResult, error) {
	if _, _, err := ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	draws := uow.DrawResultRepository()
	if err := draws.LockPeriod(ctx, period); err != nil {
		return nil, fmt.Errorf("failed to lock period %s: %w", period, err)
	}

	existing, err := draws.GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}
	if existing != nil {
		log.WithField("period", period).Debug("Period already settled, returning stored result")
		return existing, nil
	}

	now := s.clock.Now()
	due, err := s.clock.IsSettlementDue(period, now)
	if err != nil {
		return nil, err
	}
	if !due {
		return nil, fmt.Errorf("%w: %s", ErrSettlementNotDue, period)
	}

	tickets, err := uow.TicketRepository().GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for period: %w", err)
	}

	result, err := s.draw(period, tickets, now)
	if err != nil {
		return nil, err
	}

	if err := draws.Create(ctx, result); err != nil {
		if errors.Is(err, ErrDrawResultConflict) {
			// Release the period lock before reading the winner's result
			if rbErr := uow.Rollback(); rbErr != nil {
				log.WithError(rbErr).WithField("period", period).Warn("Failed to roll back settlement")
			}
			log.WithField("period", period).Warn("Concurrent settlement stored a result first")
			return s.storedResult(ctx, period)
		}
		return nil, fmt.Errorf("failed to store draw result: %w", err)
	}

	uow.EventBus().Publish(events.NewDrawSettledEvent(result))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	fields := log.Fields{
		"period":        period,
		"ticketCount":   result.TicketCount,
		"potTotal":      result.PotTotal.String(),
		"firstWinners":  len(result.Winners.First),
		"secondWinners": len(result.Winners.Second),
		"thirdWinners":  len(result.Winners.Third),
	}
	if result.WinningNumbers != nil {
		fields["winningNumbers"] = result.WinningNumbers.String()
	}
	log.WithFields(fields).Info("Settled draw")

	return result, nil
}

func (s *settlementService) draw(period string, tickets []*models.Ticket, now time.Time) (*models.DrawResult, error) {
	result := &models.DrawResult{
		Period:      period,
		Winners:     models.NewDrawWinners(),
		TicketCount: int64(len(tickets)),
		PotTotal:    decimal.Zero,
		DrawTime:    now,
	}
	if len(tickets) == 0 {
		return result, nil
	}

	result.PotTotal = s.config.TicketPrice.Mul(decimal.NewFromInt(result.TicketCount))

	winning, err := s.generator.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate winning numbers: %w", err)
	}
	result.WinningNumbers = &winning
	result.Winners = ClassifyWinners(tickets, winning, result.PotTotal, s.config.PrizeSplit)

	return result, nil
}

func (s *settlementService) storedResult(ctx context.Context, period string) (*models.DrawResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := uow.DrawResultRepository().GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("draw result for %s vanished after conflict", period)
	}
	return result, nil
}
