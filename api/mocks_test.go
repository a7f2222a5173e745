package api

import (
	"context"
	"sync"

	"goldenticket/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockTicketService struct {
	mock.Mock
}

func (m *mockTicketService) Issue(ctx context.Context, uniqueUserID, paymentTxID string, expectedAmount decimal.Decimal) (*models.Ticket, error) {
	args := m.Called(ctx, uniqueUserID, paymentTxID, expectedAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *mockTicketService) GetTicketsForUser(ctx context.Context, uniqueUserID, period string) ([]*models.Ticket, error) {
	args := m.Called(ctx, uniqueUserID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *mockTicketService) GetTicketsForPeriod(ctx context.Context, period string) ([]*models.Ticket, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

type mockResultsService struct {
	mock.Mock
}

func (m *mockResultsService) GetResult(ctx context.Context, period string) (*models.DrawResult, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawResult), args.Error(1)
}

func (m *mockResultsService) GetLatestResult(ctx context.Context) (*models.DrawResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawResult), args.Error(1)
}

type mockIdentityVerifier struct {
	mock.Mock
}

func (m *mockIdentityVerifier) VerifyProof(ctx context.Context, proof models.IdentityProof) (string, error) {
	args := m.Called(ctx, proof)
	return args.String(0), args.Error(1)
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context) error {
	return p.err
}

type recordingRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *recordingRecorder) RecordIssuanceRejected(ctx context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}
