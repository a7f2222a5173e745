package repository

import (
	"context"
	"errors"
	"fmt"

	"goldenticket/models"
	"goldenticket/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// settlementLockNamespace keeps period locks apart from any other advisory locks on the database
const settlementLockNamespace = 0x6C6F74

const drawResultColumns = `id, period, winning_numbers, ticket_count, pot_total, draw_time`

// DrawResultRepository implements draw result data access
type DrawResultRepository struct {
	q Queryable
}

// NewDrawResultRepository creates a draw result repository
func NewDrawResultRepository(q Queryable) *DrawResultRepository {
	return &DrawResultRepository{q: q}
}

// LockPeriod takes a transaction-scoped advisory lock on the period. Only meaningful inside a transaction.
func (r *DrawResultRepository) LockPeriod(ctx context.Context, period string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, int32(settlementLockNamespace), period)
	if err != nil {
		return fmt.Errorf("failed to acquire settlement lock for %s: %w", period, err)
	}
	return nil
}

// LockPeriodShared takes the shared form of the period lock. Ticket inserts hold it so a
// settlement cannot read the period's tickets while one is in flight.
func (r *DrawResultRepository) LockPeriodShared(ctx context.Context, period string) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock_shared($1, hashtext($2))`, int32(settlementLockNamespace), period)
	if err != nil {
		return fmt.Errorf("failed to acquire shared period lock for %s: %w", period, err)
	}
	return nil
}

// GetByPeriod returns the result and winners for a period, or nil
func (r *DrawResultRepository) GetByPeriod(ctx context.Context, period string) (*models.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + ` FROM draw_results WHERE period = $1`
	return r.getOne(ctx, query, period)
}

// GetLatest returns the result for the most recent period, or nil
func (r *DrawResultRepository) GetLatest(ctx context.Context) (*models.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + ` FROM draw_results ORDER BY period DESC LIMIT 1`
	return r.getOne(ctx, query)
}

// Create inserts the result unless the period already has one, then writes its winners
func (r *DrawResultRepository) Create(ctx context.Context, result *models.DrawResult) error {
	query := `
		INSERT INTO draw_results (period, winning_numbers, ticket_count, pot_total, draw_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (period) DO NOTHING
		RETURNING id
	`

	var winning []int32
	if result.WinningNumbers != nil {
		winning = result.WinningNumbers.Int32s()
	}

	err := r.q.QueryRow(ctx, query,
		result.Period,
		winning,
		result.TicketCount,
		toNumeric(result.PotTotal),
		result.DrawTime,
	).Scan(&result.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", service.ErrDrawResultConflict, result.Period)
	}
	if err != nil {
		return fmt.Errorf("failed to create draw result: %w", mapConstraintError(err))
	}

	return r.insertWinners(ctx, result)
}

func (r *DrawResultRepository) insertWinners(ctx context.Context, result *models.DrawResult) error {
	if result.Winners.Count() == 0 {
		return nil
	}

	query := `
		INSERT INTO draw_winners (draw_result_id, ticket_id, tier, unique_user_id, numbers, prize_share)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, tier := range models.Tiers {
		for _, w := range result.Winners.Bucket(tier) {
			batch.Queue(query, result.ID, w.TicketID, string(tier), w.UniqueUserID, w.Numbers.Int32s(), toNumeric(w.PrizeShare))
		}
	}

	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert draw winners for %s: %w", result.Period, err)
	}
	return nil
}

func (r *DrawResultRepository) getOne(ctx context.Context, query string, args ...any) (*models.DrawResult, error) {
	var (
		result  models.DrawResult
		winning []int32
		pot     pgtype.Numeric
	)
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&result.ID,
		&result.Period,
		&winning,
		&result.TicketCount,
		&pot,
		&result.DrawTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}

	if winning != nil {
		numbers, err := models.TicketNumbersFromInt32s(winning)
		if err != nil {
			return nil, fmt.Errorf("draw result %s has corrupt winning numbers: %w", result.Period, err)
		}
		result.WinningNumbers = &numbers
	}
	if result.PotTotal, err = fromNumeric(pot); err != nil {
		return nil, fmt.Errorf("draw result %s has invalid pot: %w", result.Period, err)
	}

	result.Winners, err = r.getWinners(ctx, result.ID)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *DrawResultRepository) getWinners(ctx context.Context, drawResultID int64) (models.DrawWinners, error) {
	query := `
		SELECT ticket_id, tier, unique_user_id, numbers, prize_share
		FROM draw_winners
		WHERE draw_result_id = $1
		ORDER BY ticket_id ASC
	`

	winners := models.NewDrawWinners()
	rows, err := r.q.Query(ctx, query, drawResultID)
	if err != nil {
		return winners, fmt.Errorf("failed to get draw winners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			w       models.DrawWinner
			tier    string
			numbers []int32
			share   pgtype.Numeric
		)
		if err := rows.Scan(&w.TicketID, &tier, &w.UniqueUserID, &numbers, &share); err != nil {
			return winners, fmt.Errorf("failed to scan draw winner: %w", err)
		}
		if w.Numbers, err = models.TicketNumbersFromInt32s(numbers); err != nil {
			return winners, fmt.Errorf("winner ticket %d has corrupt numbers: %w", w.TicketID, err)
		}
		if w.PrizeShare, err = fromNumeric(share); err != nil {
			return winners, fmt.Errorf("winner ticket %d has invalid share: %w", w.TicketID, err)
		}
		winners.Add(models.Tier(tier), w)
	}

	if err := rows.Err(); err != nil {
		return winners, fmt.Errorf("failed to iterate draw winners: %w", err)
	}
	return winners, nil
}
