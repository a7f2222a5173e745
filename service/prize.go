package service

import (
	"fmt"

	"goldenticket/models"

	"github.com/shopspring/decimal"
)

// PrizeDecimalPlaces is the precision per-winner shares are rounded to
const PrizeDecimalPlaces = 8

// PrizeSplit is the fraction of the pot reserved for each tier. The remainder is retained.
type PrizeSplit struct {
	First  decimal.Decimal
	Second decimal.Decimal
	Third  decimal.Decimal
}

// DefaultPrizeSplit returns the 60/25/10 split
func DefaultPrizeSplit() PrizeSplit {
	return PrizeSplit{
		First:  decimal.RequireFromString("0.60"),
		Second: decimal.RequireFromString("0.25"),
		Third:  decimal.RequireFromString("0.10"),
	}
}

// Validate rejects negative fractions and splits that hand out more than the pot
func (p PrizeSplit) Validate() error {
	for _, tier := range models.Tiers {
		if p.Fraction(tier).IsNegative() {
			return fmt.Errorf("prize split for %s tier is negative", tier)
		}
	}
	if total := p.First.Add(p.Second).Add(p.Third); total.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("prize split sums to %s, must not exceed 1", total)
	}
	return nil
}

// Fraction returns the pot fraction for a tier
func (p PrizeSplit) Fraction(tier models.Tier) decimal.Decimal {
	switch tier {
	case models.TierFirst:
		return p.First
	case models.TierSecond:
		return p.Second
	case models.TierThird:
		return p.Third
	}
	return decimal.Zero
}

// PrizeShare divides a tier's pool equally between its winners
func PrizeShare(pot, fraction decimal.Decimal, winners int) decimal.Decimal {
	if winners <= 0 {
		return decimal.Zero
	}
	return pot.Mul(fraction).DivRound(decimal.NewFromInt(int64(winners)), PrizeDecimalPlaces)
}

// ClassifyWinners scores every ticket against the winning numbers and assigns prize shares.
// A ticket lands in its highest matching tier only; tiers without winners pay nothing.
func ClassifyWinners(tickets []*models.Ticket, winning models.TicketNumbers, pot decimal.Decimal, split PrizeSplit) models.DrawWinners {
	winners := models.NewDrawWinners()
	for _, ticket := range tickets {
		tier := ticket.Numbers.Tier(winning)
		if tier == models.TierNone {
			continue
		}
		winners.Add(tier, models.DrawWinner{
			TicketID:     ticket.ID,
			UniqueUserID: ticket.UniqueUserID,
			Numbers:      ticket.Numbers,
		})
	}

	for _, tier := range models.Tiers {
		bucket := winners.Bucket(tier)
		share := PrizeShare(pot, split.Fraction(tier), len(bucket))
		for i := range bucket {
			bucket[i].PrizeShare = share
		}
	}
	return winners
}
