package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePaymentTxID(t *testing.T) {
	t.Parallel()

	lower := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already normalized", input: lower, want: lower},
		{name: "upper case hex folds to lower", input: "0x" + strings.Repeat("AB", 32), want: lower},
		{name: "surrounding whitespace trimmed", input: "  " + lower + "\n", want: lower},
		{name: "missing prefix", input: strings.Repeat("ab", 33), wantErr: true},
		{name: "too short", input: "0xabc", wantErr: true},
		{name: "non hex characters", input: "0x" + strings.Repeat("zz", 32), wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizePaymentTxID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewTicket(t *testing.T) {
	t.Parallel()

	txID := "0x" + strings.Repeat("0f", 32)
	numbers := TicketNumbers{1, 2, 3, 4, 5}
	now := time.Now()

	ticket, err := NewTicket("nullifier-1", "2025-W20", numbers, now, strings.ToUpper(txID[2:]))
	assert.Nil(t, ticket)
	assert.Error(t, err)

	ticket, err = NewTicket("nullifier-1", "2025-W20", numbers, now, txID)
	require.NoError(t, err)
	assert.Equal(t, "nullifier-1", ticket.UniqueUserID)
	assert.Equal(t, txID, ticket.PaymentTxID)
	assert.Zero(t, ticket.ID)

	_, err = NewTicket(" ", "2025-W20", numbers, now, txID)
	assert.ErrorContains(t, err, "unique user id")

	_, err = NewTicket("nullifier-1", "2025-W20", TicketNumbers{0, 2, 3, 4, 5}, now, txID)
	assert.ErrorContains(t, err, "out of range")
}
