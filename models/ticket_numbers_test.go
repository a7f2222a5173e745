package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketNumbers_Tier(t *testing.T) {
	t.Parallel()

	winning := TicketNumbers{1, 2, 3, 4, 5}

	tests := []struct {
		name   string
		ticket TicketNumbers
		want   Tier
	}{
		{
			name:   "all five positions match",
			ticket: TicketNumbers{1, 2, 3, 4, 5},
			want:   TierFirst,
		},
		{
			name:   "first four match, fifth differs",
			ticket: TicketNumbers{1, 2, 3, 4, 9},
			want:   TierSecond,
		},
		{
			name:   "first three match",
			ticket: TicketNumbers{1, 2, 3, 9, 9},
			want:   TierThird,
		},
		{
			name:   "third position mismatch breaks every tier",
			ticket: TicketNumbers{1, 2, 9, 4, 5},
			want:   TierNone,
		},
		{
			name:   "same values in different order do not match",
			ticket: TicketNumbers{2, 1, 3, 4, 5},
			want:   TierNone,
		},
		{
			name:   "nothing matches",
			ticket: TicketNumbers{50, 50, 50, 30, 10},
			want:   TierNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ticket.Tier(winning))
		})
	}
}

func TestNewTicketNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		values      []int
		wantErr     bool
		errContains string
	}{
		{name: "valid lower bounds", values: []int{1, 1, 1, 1, 1}},
		{name: "valid upper bounds", values: []int{50, 50, 50, 30, 10}},
		{name: "too few numbers", values: []int{1, 2, 3, 4}, wantErr: true, errContains: "exactly 5"},
		{name: "zero is out of range", values: []int{0, 2, 3, 4, 5}, wantErr: true, errContains: "position 1"},
		{name: "fourth position capped at 30", values: []int{1, 2, 3, 31, 5}, wantErr: true, errContains: "position 4"},
		{name: "fifth position capped at 10", values: []int{1, 2, 3, 4, 11}, wantErr: true, errContains: "position 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			numbers, err := NewTicketNumbers(tt.values)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.values, numbers.Slice())
		})
	}
}

func TestTicketNumbers_Int32RoundTrip(t *testing.T) {
	t.Parallel()

	numbers := TicketNumbers{7, 12, 49, 30, 3}
	back, err := TicketNumbersFromInt32s(numbers.Int32s())
	require.NoError(t, err)
	assert.Equal(t, numbers, back)
	assert.Equal(t, "7-12-49-30-3", numbers.String())
}
