package repository

import (
	"context"
	"testing"
	"time"

	"goldenticket/models"
	"goldenticket/repository/testutil"
	"goldenticket/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	repo := NewTicketRepository(testDB.DB)

	t.Run("create and read back", func(t *testing.T) {
		testDB.Truncate(t)

		ticket := testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{50, 1, 25, 30, 10})
		require.NoError(t, repo.Create(ctx, ticket))
		assert.NotZero(t, ticket.ID)

		byID, err := repo.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, ticket.Numbers, byID.Numbers)
		assert.Equal(t, ticket.PaymentTxID, byID.PaymentTxID)
		assert.True(t, ticket.PurchaseTime.Equal(byID.PurchaseTime))

		byTx, err := repo.GetByPaymentTxID(ctx, ticket.PaymentTxID)
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, byTx.ID)

		missing, err := repo.GetByPaymentTxID(ctx, testutil.NextPaymentTxID())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("payment transaction is unique", func(t *testing.T) {
		testDB.Truncate(t)

		first := testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5})
		require.NoError(t, repo.Create(ctx, first))

		replay := testutil.CreateTestTicket("user-2", "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5})
		replay.PaymentTxID = first.PaymentTxID
		assert.ErrorIs(t, repo.Create(ctx, replay), service.ErrPaymentTxConflict)
	})

	t.Run("replay by the same user reports the payment conflict", func(t *testing.T) {
		testDB.Truncate(t)

		first := testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5})
		require.NoError(t, repo.Create(ctx, first))

		replay := testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{5, 4, 3, 2, 1})
		replay.PaymentTxID = first.PaymentTxID
		assert.ErrorIs(t, repo.Create(ctx, replay), service.ErrPaymentTxConflict)
	})

	t.Run("one ticket per user per period", func(t *testing.T) {
		testDB.Truncate(t)

		require.NoError(t, repo.Create(ctx, testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5})))
		err := repo.Create(ctx, testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5}))
		assert.ErrorIs(t, err, service.ErrUserPeriodConflict)

		require.NoError(t, repo.Create(ctx, testutil.CreateTestTicket("user-1", "2025-W21", models.TicketNumbers{1, 2, 3, 4, 5})))
	})

	t.Run("period queries are ordered by purchase time", func(t *testing.T) {
		testDB.Truncate(t)

		base := time.Date(2025, time.May, 14, 12, 0, 0, 0, time.UTC)
		for i, user := range []string{"user-c", "user-a", "user-b"} {
			ticket := testutil.CreateTestTicket(user, "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5})
			ticket.PurchaseTime = base.Add(time.Duration(3-i) * time.Minute)
			require.NoError(t, repo.Create(ctx, ticket))
		}
		require.NoError(t, repo.Create(ctx, testutil.CreateTestTicket("user-a", "2025-W21", models.TicketNumbers{1, 2, 3, 4, 5})))

		tickets, err := repo.GetByPeriod(ctx, "2025-W20")
		require.NoError(t, err)
		require.Len(t, tickets, 3)
		assert.Equal(t, "user-b", tickets[0].UniqueUserID)
		assert.Equal(t, "user-a", tickets[1].UniqueUserID)
		assert.Equal(t, "user-c", tickets[2].UniqueUserID)

		count, err := repo.CountByPeriod(ctx, "2025-W20")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		mine, err := repo.GetByUserForPeriod(ctx, "user-a", "2025-W21")
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		none, err := repo.GetByUserForPeriod(ctx, "user-z", "2025-W20")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestProcessedPaymentRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	tickets := NewTicketRepository(testDB.DB)
	ledger := NewProcessedPaymentRepository(testDB.DB)

	ticket := testutil.CreateTestTicket("user-1", "2025-W20", models.TicketNumbers{1, 2, 3, 4, 5})
	require.NoError(t, tickets.Create(ctx, ticket))

	missing, err := ledger.GetByTxID(ctx, ticket.PaymentTxID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	payment := &models.ProcessedPayment{PaymentTxID: ticket.PaymentTxID, TicketID: ticket.ID, ProcessedAt: time.Now()}
	require.NoError(t, ledger.Create(ctx, payment))

	found, err := ledger.GetByTxID(ctx, ticket.PaymentTxID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, found.TicketID)

	err = ledger.Create(ctx, &models.ProcessedPayment{PaymentTxID: ticket.PaymentTxID, TicketID: ticket.ID, ProcessedAt: time.Now()})
	assert.ErrorIs(t, err, service.ErrPaymentTxConflict)
}
