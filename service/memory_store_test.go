package service

import (
	"context"
	"sort"
	"sync"

	"goldenticket/events"
	"goldenticket/models"
)

// memoryStore is an in-process stand-in for the database that enforces the same
// uniqueness constraints and per-period settlement lock (exclusive for settlement,
// shared for ticket inserts), for concurrency tests.
// Writes are applied immediately and are not undone by Rollback.
type memoryStore struct {
	mu          sync.Mutex
	nextID      int64
	tickets     []*models.Ticket
	payments    map[string]*models.ProcessedPayment
	results     map[string]*models.DrawResult
	periodLocks sync.Map // period -> *sync.RWMutex
	published   []events.Event
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		payments: make(map[string]*models.ProcessedPayment),
		results:  make(map[string]*models.DrawResult),
	}
}

func (s *memoryStore) Create() UnitOfWork {
	return &memoryUnitOfWork{store: s}
}

func (s *memoryStore) ticketCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

func (s *memoryStore) publishedEvents() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.published...)
}

type memoryUnitOfWork struct {
	store   *memoryStore
	locked  []func()
	pending []events.Event
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error { return nil }

func (u *memoryUnitOfWork) Commit() error {
	u.store.mu.Lock()
	u.store.published = append(u.store.published, u.pending...)
	u.store.mu.Unlock()
	u.pending = nil
	u.release()
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	u.pending = nil
	u.release()
	return nil
}

func (u *memoryUnitOfWork) release() {
	for _, unlock := range u.locked {
		unlock()
	}
	u.locked = nil
}

func (u *memoryUnitOfWork) TicketRepository() TicketRepository { return memoryTickets{u.store} }
func (u *memoryUnitOfWork) ProcessedPaymentRepository() ProcessedPaymentRepository {
	return memoryPayments{u.store}
}
func (u *memoryUnitOfWork) DrawResultRepository() DrawResultRepository { return memoryDraws{u} }
func (u *memoryUnitOfWork) EventBus() EventPublisher                   { return u }

func (u *memoryUnitOfWork) Publish(event events.Event) {
	u.pending = append(u.pending, event)
}

type memoryTickets struct{ store *memoryStore }

func (r memoryTickets) Create(ctx context.Context, ticket *models.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tickets {
		if t.PaymentTxID == ticket.PaymentTxID {
			return ErrPaymentTxConflict
		}
		if t.UniqueUserID == ticket.UniqueUserID && t.Period == ticket.Period {
			return ErrUserPeriodConflict
		}
	}
	r.store.nextID++
	ticket.ID = r.store.nextID
	stored := *ticket
	r.store.tickets = append(r.store.tickets, &stored)
	return nil
}

func (r memoryTickets) find(match func(*models.Ticket) bool) []*models.Ticket {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var found []*models.Ticket
	for _, t := range r.store.tickets {
		if match(t) {
			copied := *t
			found = append(found, &copied)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found
}

func (r memoryTickets) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	if found := r.find(func(t *models.Ticket) bool { return t.ID == id }); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (r memoryTickets) GetByPaymentTxID(ctx context.Context, paymentTxID string) (*models.Ticket, error) {
	if found := r.find(func(t *models.Ticket) bool { return t.PaymentTxID == paymentTxID }); len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}

func (r memoryTickets) GetByUserForPeriod(ctx context.Context, uniqueUserID string, period string) ([]*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.UniqueUserID == uniqueUserID && t.Period == period }), nil
}

func (r memoryTickets) GetByPeriod(ctx context.Context, period string) ([]*models.Ticket, error) {
	return r.find(func(t *models.Ticket) bool { return t.Period == period }), nil
}

func (r memoryTickets) CountByPeriod(ctx context.Context, period string) (int64, error) {
	return int64(len(r.find(func(t *models.Ticket) bool { return t.Period == period }))), nil
}

type memoryPayments struct{ store *memoryStore }

func (r memoryPayments) GetByTxID(ctx context.Context, paymentTxID string) (*models.ProcessedPayment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.payments[paymentTxID], nil
}

func (r memoryPayments) Create(ctx context.Context, payment *models.ProcessedPayment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.payments[payment.PaymentTxID]; ok {
		return ErrPaymentTxConflict
	}
	r.store.payments[payment.PaymentTxID] = payment
	return nil
}

type memoryDraws struct{ uow *memoryUnitOfWork }

func (r memoryDraws) periodLock(period string) *sync.RWMutex {
	l, _ := r.uow.store.periodLocks.LoadOrStore(period, &sync.RWMutex{})
	return l.(*sync.RWMutex)
}

func (r memoryDraws) LockPeriod(ctx context.Context, period string) error {
	mu := r.periodLock(period)
	mu.Lock()
	r.uow.locked = append(r.uow.locked, mu.Unlock)
	return nil
}

func (r memoryDraws) LockPeriodShared(ctx context.Context, period string) error {
	mu := r.periodLock(period)
	mu.RLock()
	r.uow.locked = append(r.uow.locked, mu.RUnlock)
	return nil
}

func (r memoryDraws) GetByPeriod(ctx context.Context, period string) (*models.DrawResult, error) {
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	return r.uow.store.results[period], nil
}

func (r memoryDraws) Create(ctx context.Context, result *models.DrawResult) error {
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	if _, ok := r.uow.store.results[result.Period]; ok {
		return ErrDrawResultConflict
	}
	r.uow.store.nextID++
	result.ID = r.uow.store.nextID
	r.uow.store.results[result.Period] = result
	return nil
}

func (r memoryDraws) GetLatest(ctx context.Context) (*models.DrawResult, error) {
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	var latest *models.DrawResult
	for _, result := range r.uow.store.results {
		if latest == nil || result.Period > latest.Period {
			latest = result
		}
	}
	return latest, nil
}
