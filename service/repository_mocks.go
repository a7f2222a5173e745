package service

import (
	"context"

	"goldenticket/events"
	"goldenticket/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByPaymentTxID(ctx context.Context, paymentTxID string) (*models.Ticket, error) {
	args := m.Called(ctx, paymentTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByUserForPeriod(ctx context.Context, uniqueUserID string, period string) ([]*models.Ticket, error) {
	args := m.Called(ctx, uniqueUserID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByPeriod(ctx context.Context, period string) ([]*models.Ticket, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CountByPeriod(ctx context.Context, period string) (int64, error) {
	args := m.Called(ctx, period)
	return args.Get(0).(int64), args.Error(1)
}

// MockProcessedPaymentRepository is a mock implementation of ProcessedPaymentRepository
type MockProcessedPaymentRepository struct {
	mock.Mock
}

func (m *MockProcessedPaymentRepository) GetByTxID(ctx context.Context, paymentTxID string) (*models.ProcessedPayment, error) {
	args := m.Called(ctx, paymentTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessedPayment), args.Error(1)
}

func (m *MockProcessedPaymentRepository) Create(ctx context.Context, payment *models.ProcessedPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockDrawResultRepository is a mock implementation of DrawResultRepository
type MockDrawResultRepository struct {
	mock.Mock
}

func (m *MockDrawResultRepository) LockPeriod(ctx context.Context, period string) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockDrawResultRepository) LockPeriodShared(ctx context.Context, period string) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockDrawResultRepository) GetByPeriod(ctx context.Context, period string) (*models.DrawResult, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawResult), args.Error(1)
}

func (m *MockDrawResultRepository) Create(ctx context.Context, result *models.DrawResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockDrawResultRepository) GetLatest(ctx context.Context) (*models.DrawResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawResult), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	ticketRepo  TicketRepository
	paymentRepo ProcessedPaymentRepository
	drawRepo    DrawResultRepository
	eventBus    EventPublisher
}

// SetRepositories wires the repositories handed out by the getters
func (m *MockUnitOfWork) SetRepositories(tickets TicketRepository, payments ProcessedPaymentRepository, draws DrawResultRepository, bus EventPublisher) {
	m.ticketRepo = tickets
	m.paymentRepo = payments
	m.drawRepo = draws
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) TicketRepository() TicketRepository {
	return m.ticketRepo
}

func (m *MockUnitOfWork) ProcessedPaymentRepository() ProcessedPaymentRepository {
	return m.paymentRepo
}

func (m *MockUnitOfWork) DrawResultRepository() DrawResultRepository {
	return m.drawRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockPaymentVerifier is a mock implementation of PaymentVerifier
type MockPaymentVerifier struct {
	mock.Mock
}

func (m *MockPaymentVerifier) VerifyPayment(ctx context.Context, paymentTxID string, expectedAmount decimal.Decimal) error {
	args := m.Called(ctx, paymentTxID, expectedAmount)
	return args.Error(0)
}

// MockNumberGenerator is a mock implementation of NumberGenerator
type MockNumberGenerator struct {
	mock.Mock
}

func (m *MockNumberGenerator) Generate() (models.TicketNumbers, error) {
	args := m.Called()
	return args.Get(0).(models.TicketNumbers), args.Error(1)
}
