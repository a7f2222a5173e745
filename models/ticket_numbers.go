package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TicketNumberCount is the number of positions on a ticket
const TicketNumberCount = 5

// TicketNumberRanges holds the inclusive upper bound for each position; every lower bound is 1
var TicketNumberRanges = [TicketNumberCount]int{50, 50, 50, 30, 10}

// TicketNumbers is an ordered draw of five numbers
type TicketNumbers [TicketNumberCount]int

// Tier is a prize rank awarded by positional matching
type Tier string

const (
	TierNone   Tier = ""
	TierFirst  Tier = "first"
	TierSecond Tier = "second"
	TierThird  Tier = "third"
)

// Tiers lists the prize ranks from highest to lowest
var Tiers = []Tier{TierFirst, TierSecond, TierThird}

// tierPrefixLengths is how many leading positions must match for each tier
var tierPrefixLengths = map[Tier]int{
	TierFirst:  5,
	TierSecond: 4,
	TierThird:  3,
}

// NewTicketNumbers builds a validated TicketNumbers from a slice
func NewTicketNumbers(values []int) (TicketNumbers, error) {
	var numbers TicketNumbers
	if len(values) != TicketNumberCount {
		return numbers, fmt.Errorf("ticket must have exactly %d numbers, got %d", TicketNumberCount, len(values))
	}
	copy(numbers[:], values)
	if err := numbers.Validate(); err != nil {
		return TicketNumbers{}, err
	}
	return numbers, nil
}

// Validate checks every position against its range
func (n TicketNumbers) Validate() error {
	for i, v := range n {
		if v < 1 || v > TicketNumberRanges[i] {
			return fmt.Errorf("number %d at position %d out of range [1,%d]", v, i+1, TicketNumberRanges[i])
		}
	}
	return nil
}

// MatchingPrefix returns how many leading positions equal the winning numbers
func (n TicketNumbers) MatchingPrefix(winning TicketNumbers) int {
	count := 0
	for i := range n {
		if n[i] != winning[i] {
			break
		}
		count++
	}
	return count
}

// Tier classifies the ticket against the winning numbers.
// Matching is positional, and a ticket is awarded only its highest tier.
func (n TicketNumbers) Tier(winning TicketNumbers) Tier {
	prefix := n.MatchingPrefix(winning)
	for _, tier := range Tiers {
		if prefix >= tierPrefixLengths[tier] {
			return tier
		}
	}
	return TierNone
}

// Slice returns the numbers as a slice
func (n TicketNumbers) Slice() []int {
	return append([]int(nil), n[:]...)
}

// Int32s returns the numbers as int32 values for integer[] columns
func (n TicketNumbers) Int32s() []int32 {
	out := make([]int32, len(n))
	for i, v := range n {
		out[i] = int32(v)
	}
	return out
}

// TicketNumbersFromInt32s converts an integer[] column back into TicketNumbers
func TicketNumbersFromInt32s(values []int32) (TicketNumbers, error) {
	ints := make([]int, len(values))
	for i, v := range values {
		ints[i] = int(v)
	}
	return NewTicketNumbers(ints)
}

// String formats the numbers as "n1-n2-n3-n4-n5"
func (n TicketNumbers) String() string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "-")
}
