package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"goldenticket/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan TicketIssuedEvent, 1)
	mainBus.Subscribe(EventTypeTicketIssued, func(ctx context.Context, event Event) {
		if issued, ok := event.(TicketIssuedEvent); ok {
			eventReceived <- issued
		} else {
			t.Errorf("Expected TicketIssuedEvent, got %T", event)
		}
	})

	testEvent := TicketIssuedEvent{
		TicketID:     42,
		UniqueUserID: "0xnullifier",
		Period:       "2025-W20",
		Numbers:      models.TicketNumbers{4, 8, 15, 16, 2},
		PaymentTxID:  "0xabc",
		PurchaseTime: time.Now(),
	}

	transactionalBus.Publish(testEvent)
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent.TicketID, received.TicketID)
		assert.Equal(t, testEvent.Period, received.Period)
		assert.Equal(t, testEvent.Numbers, received.Numbers)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan string, 3)
	var wg sync.WaitGroup
	wg.Add(3)

	mainBus.Subscribe(EventTypeDrawSettled, func(ctx context.Context, event Event) {
		defer wg.Done()
		if settled, ok := event.(DrawSettledEvent); ok {
			received <- settled.Period
		}
	})

	for _, period := range []string{"2025-W18", "2025-W19", "2025-W20"} {
		transactionalBus.Publish(DrawSettledEvent{Period: period, PotTotal: decimal.Zero})
	}
	require.NoError(t, transactionalBus.Flush(context.Background()))

	wg.Wait()
	close(received)

	periods := make(map[string]bool)
	for p := range received {
		periods[p] = true
	}
	assert.Len(t, periods, 3)
	assert.True(t, periods["2025-W19"])
}

func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan bool, 1)
	mainBus.Subscribe(EventTypeTicketIssued, func(ctx context.Context, event Event) {
		eventReceived <- true
	})

	transactionalBus.Publish(TicketIssuedEvent{TicketID: 1})
	transactionalBus.Discard()

	select {
	case <-eventReceived:
		t.Fatal("Event was received despite being discarded")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFlushOutlivesCancelledContext(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	ctxErr := make(chan error, 1)
	mainBus.Subscribe(EventTypeDrawSettled, func(ctx context.Context, event Event) {
		ctxErr <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transactionalBus.Publish(DrawSettledEvent{Period: "2025-W20"})
	require.NoError(t, transactionalBus.Flush(ctx))

	select {
	case err := <-ctxErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestNewDrawSettledEvent(t *testing.T) {
	t.Parallel()

	numbers := models.TicketNumbers{1, 2, 3, 4, 5}
	result := &models.DrawResult{
		ID:             7,
		Period:         "2025-W20",
		WinningNumbers: &numbers,
		Winners: models.DrawWinners{
			First:  []models.DrawWinner{{TicketID: 1}},
			Second: []models.DrawWinner{},
			Third:  []models.DrawWinner{{TicketID: 2}, {TicketID: 3}},
		},
		TicketCount: 10,
		PotTotal:    decimal.NewFromInt(10),
	}

	ev := NewDrawSettledEvent(result)
	assert.Equal(t, int64(7), ev.DrawResultID)
	assert.Equal(t, 1, ev.FirstWinners)
	assert.Equal(t, 0, ev.SecondWinners)
	assert.Equal(t, 2, ev.ThirdWinners)
	assert.True(t, ev.PotTotal.Equal(decimal.NewFromInt(10)))
}
