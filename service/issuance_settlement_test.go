package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"goldenticket/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	justBeforeCutover = time.Date(2025, time.May, 18, 18, 59, 59, 999_000_000, time.UTC)
	justAfterCutover  = time.Date(2025, time.May, 18, 19, 0, 1, 0, time.UTC)
)

// movableClock is a clock a test can move across the cutover mid-request
type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *movableClock) periodClock() *PeriodClock {
	return NewPeriodClock(time.UTC, time.Sunday, 19).WithNow(c.Now)
}

// gatedGenerator blocks inside the ticket insert until released
type gatedGenerator struct {
	numbers models.TicketNumbers
	entered chan struct{}
	release chan struct{}
}

func newGatedGenerator(numbers models.TicketNumbers) *gatedGenerator {
	return &gatedGenerator{
		numbers: numbers,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedGenerator) Generate() (models.TicketNumbers, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.numbers, nil
}

type fixedGenerator models.TicketNumbers

func (g fixedGenerator) Generate() (models.TicketNumbers, error) {
	return models.TicketNumbers(g), nil
}

func TestIssueAndSettle_TicketInFlightAtCutoverIsScored(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: justBeforeCutover}
	jackpot := models.TicketNumbers{1, 2, 3, 4, 5}
	store := newMemoryStore()
	gen := newGatedGenerator(jackpot)
	issuer := NewTicketService(store, acceptAllVerifier{}, gen, clock.periodClock())
	settler := NewSettlementService(store, fixedGenerator(jackpot), clock.periodClock(), testSettlementConfig())

	type issued struct {
		ticket *models.Ticket
		err    error
	}
	issueDone := make(chan issued, 1)
	go func() {
		ticket, err := issuer.Issue(context.Background(), "user-1", testTxID, ticketCost)
		issueDone <- issued{ticket, err}
	}()

	// The insert transaction is open for 2025-W20 when the period closes
	<-gen.entered
	clock.Set(justAfterCutover)

	type settled struct {
		result *models.DrawResult
		err    error
	}
	settleDone := make(chan settled, 1)
	go func() {
		result, err := settler.Settle(context.Background(), "2025-W20")
		settleDone <- settled{result, err}
	}()

	select {
	case <-settleDone:
		t.Fatal("settlement finished while a ticket insert for the period was still open")
	case <-time.After(50 * time.Millisecond):
	}
	close(gen.release)

	got := <-issueDone
	require.NoError(t, got.err)
	assert.Equal(t, "2025-W20", got.ticket.Period)

	draw := <-settleDone
	require.NoError(t, draw.err)
	assert.Equal(t, int64(1), draw.result.TicketCount)
	require.Len(t, draw.result.Winners.First, 1)
	assert.Equal(t, got.ticket.ID, draw.result.Winners.First[0].TicketID)
}

func TestIssueAndSettle_PurchaseMovesToNextPeriodWhenSettledFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newMemoryStore()
	settleClock := &movableClock{now: justAfterCutover}
	settler := NewSettlementService(store, fixedGenerator{1, 2, 3, 4, 5}, settleClock.periodClock(), testSettlementConfig())

	// The purchase reads the clock just before the cutover; 2025-W20 settles before its
	// insert starts. Later reads see the cutover has passed.
	var (
		reads     int
		settleErr error
	)
	issueClock := NewPeriodClock(time.UTC, time.Sunday, 19).WithNow(func() time.Time {
		reads++
		if reads == 1 {
			_, settleErr = settler.Settle(ctx, "2025-W20")
			return justBeforeCutover
		}
		return justAfterCutover
	})
	issuer := NewTicketService(store, acceptAllVerifier{}, NewNumberGenerator(), issueClock)

	ticket, err := issuer.Issue(ctx, "user-1", testTxID, ticketCost)

	require.NoError(t, settleErr)
	require.NoError(t, err)
	assert.Equal(t, "2025-W21", ticket.Period)

	result, err := settler.Settle(ctx, "2025-W20")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TicketCount)

	closed, err := issuer.GetTicketsForPeriod(ctx, "2025-W20")
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestIssueAndSettle_EveryTicketOfSettledPeriodIsCounted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &movableClock{now: justBeforeCutover}
	store := newMemoryStore()
	issuer := NewTicketService(store, acceptAllVerifier{}, NewNumberGenerator(), clock.periodClock())
	settler := NewSettlementService(store, NewNumberGenerator(), clock.periodClock(), testSettlementConfig())

	const buyers = 30
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txID := fmt.Sprintf("0x%064x", i+1)
			_, err := issuer.Issue(ctx, fmt.Sprintf("user-%d", i), txID, ticketCost)
			assert.NoError(t, err)
		}(i)
		if i == buyers/2 {
			clock.Set(justAfterCutover)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := settler.Settle(ctx, "2025-W20")
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	result, err := settler.Settle(ctx, "2025-W20")
	require.NoError(t, err)
	tickets, err := issuer.GetTicketsForPeriod(ctx, "2025-W20")
	require.NoError(t, err)
	assert.Equal(t, int64(len(tickets)), result.TicketCount)

	next, err := issuer.GetTicketsForPeriod(ctx, "2025-W21")
	require.NoError(t, err)
	assert.Equal(t, buyers, len(tickets)+len(next))
}
