package events

import (
	"context"
	"sync"
	"time"

	"goldenticket/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTicketIssued EventType = "ticket_issued"
	EventTypeDrawSettled  EventType = "draw_settled"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TicketIssuedEvent is emitted once a paid ticket has been committed
type TicketIssuedEvent struct {
	TicketID     int64                `json:"ticketId"`
	UniqueUserID string               `json:"uniqueUserId"`
	Period       string               `json:"period"`
	Numbers      models.TicketNumbers `json:"numbers"`
	PaymentTxID  string               `json:"paymentTxId"`
	PurchaseTime time.Time            `json:"purchaseTime"`
}

func (e TicketIssuedEvent) Type() EventType {
	return EventTypeTicketIssued
}

// DrawSettledEvent is emitted once a period's draw result has been committed
type DrawSettledEvent struct {
	DrawResultID   int64                 `json:"drawResultId"`
	Period         string                `json:"period"`
	WinningNumbers *models.TicketNumbers `json:"winningNumbers"`
	TicketCount    int64                 `json:"ticketCount"`
	PotTotal       decimal.Decimal       `json:"potTotal"`
	FirstWinners   int                   `json:"firstWinners"`
	SecondWinners  int                   `json:"secondWinners"`
	ThirdWinners   int                   `json:"thirdWinners"`
	DrawTime       time.Time             `json:"drawTime"`
}

func (e DrawSettledEvent) Type() EventType {
	return EventTypeDrawSettled
}

// NewDrawSettledEvent summarizes a stored result
func NewDrawSettledEvent(result *models.DrawResult) DrawSettledEvent {
	return DrawSettledEvent{
		DrawResultID:   result.ID,
		Period:         result.Period,
		WinningNumbers: result.WinningNumbers,
		TicketCount:    result.TicketCount,
		PotTotal:       result.PotTotal,
		FirstWinners:   len(result.Winners.First),
		SecondWinners:  len(result.Winners.Second),
		ThirdWinners:   len(result.Winners.Third),
		DrawTime:       result.DrawTime,
	}
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit hands the event to every subscribed handler on its own goroutine
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit. Handlers get a fresh context since
// the request context may already be gone by the time they run.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events to event bus")

	for _, ev := range b.pending {
		b.real.Emit(context.WithoutCancel(ctx), ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
