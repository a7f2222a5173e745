package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DrawWinner is one winning ticket and the share it was awarded
type DrawWinner struct {
	TicketID     int64           `db:"ticket_id" json:"ticketId"`
	UniqueUserID string          `db:"unique_user_id" json:"uniqueUserId"`
	Numbers      TicketNumbers   `db:"numbers" json:"numbers"`
	PrizeShare   decimal.Decimal `db:"prize_share" json:"prizeShare"`
}

// DrawWinners groups winners by tier
type DrawWinners struct {
	First  []DrawWinner `json:"first"`
	Second []DrawWinner `json:"second"`
	Third  []DrawWinner `json:"third"`
}

// NewDrawWinners returns buckets that serialize as empty lists rather than null
func NewDrawWinners() DrawWinners {
	return DrawWinners{
		First:  []DrawWinner{},
		Second: []DrawWinner{},
		Third:  []DrawWinner{},
	}
}

// Bucket returns the winners for a tier
func (w *DrawWinners) Bucket(tier Tier) []DrawWinner {
	switch tier {
	case TierFirst:
		return w.First
	case TierSecond:
		return w.Second
	case TierThird:
		return w.Third
	}
	return nil
}

// Add appends a winner to the bucket for its tier
func (w *DrawWinners) Add(tier Tier, winner DrawWinner) {
	switch tier {
	case TierFirst:
		w.First = append(w.First, winner)
	case TierSecond:
		w.Second = append(w.Second, winner)
	case TierThird:
		w.Third = append(w.Third, winner)
	}
}

// Count returns the total number of winners across tiers
func (w *DrawWinners) Count() int {
	return len(w.First) + len(w.Second) + len(w.Third)
}

// DrawResult is the final, immutable settlement record for one period
type DrawResult struct {
	ID             int64           `db:"id" json:"id"`
	Period         string          `db:"period" json:"period"`
	WinningNumbers *TicketNumbers  `db:"winning_numbers" json:"winningNumbers"` // nil when the period sold no tickets
	Winners        DrawWinners     `json:"winners"`
	TicketCount    int64           `db:"ticket_count" json:"ticketCount"`
	PotTotal       decimal.Decimal `db:"pot_total" json:"potTotal"`
	DrawTime       time.Time       `db:"draw_time" json:"drawTime"`
}

// IsEmpty reports whether the period had no tickets to score
func (d *DrawResult) IsEmpty() bool {
	return d.WinningNumbers == nil
}
