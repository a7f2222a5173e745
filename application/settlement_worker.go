package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldenticket/models"
	"goldenticket/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const defaultRetryDelay = 5 * time.Minute

// SettlementWorker settles each period once its cutover passes
type SettlementWorker struct {
	settler    service.SettlementService
	clock      *service.PeriodClock
	schedule   cron.Schedule
	retryDelay time.Duration
}

// NewCutoverSchedule returns the weekly cron schedule firing at the cutover instant
func NewCutoverSchedule(location *time.Location, weekday time.Weekday, hour int) (cron.Schedule, error) {
	spec := fmt.Sprintf("CRON_TZ=%s 0 %d * * %d", location.String(), hour, int(weekday))
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cutover schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(settler service.SettlementService, clock *service.PeriodClock, schedule cron.Schedule) *SettlementWorker {
	return &SettlementWorker{
		settler:    settler,
		clock:      clock,
		schedule:   schedule,
		retryDelay: defaultRetryDelay,
	}
}

// WithRetryDelay sets how long the worker waits after a failed settlement
func (w *SettlementWorker) WithRetryDelay(d time.Duration) *SettlementWorker {
	w.retryDelay = d
	return w
}

// Start begins the settlement worker. The most recently closed period is settled
// right away so a restart after a missed cutover catches up.
func (w *SettlementWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Settlement worker started")

		for {
			wait := w.retryDelay
			if err := w.settlePrevious(ctx); err != nil {
				log.WithError(err).Error("Error settling closed period")
			} else {
				now := w.clock.Now()
				next := w.schedule.Next(now)
				wait = next.Sub(now)
				log.WithFields(log.Fields{
					"nextCutover": next,
					"wait":        wait,
				}).Info("Waiting for next settlement")
			}

			select {
			case <-ctx.Done():
				log.Info("Settlement worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement worker shutting down (stop requested)...")
				return
			case <-time.After(wait):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

func (w *SettlementWorker) settlePrevious(ctx context.Context) error {
	period := w.clock.PreviousPeriod(w.clock.Now())

	result, err := w.settler.Settle(ctx, period)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to settle period %s: %w", period, err)
	}

	log.WithFields(log.Fields{
		"period":         result.Period,
		"drawResultID":   result.ID,
		"ticketCount":    result.TicketCount,
		"potTotal":       result.PotTotal.String(),
		"winnerCount":    result.Winners.Count(),
		"winningNumbers": winningNumbersField(result.WinningNumbers),
	}).Info("Settlement complete")
	return nil
}

func winningNumbersField(numbers *models.TicketNumbers) string {
	if numbers == nil {
		return "none"
	}
	return numbers.String()
}
