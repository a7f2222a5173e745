package service

import (
	"context"
	"fmt"

	"goldenticket/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultResultCacheSize is roughly two years of weekly draws
const DefaultResultCacheSize = 128

// resultsService implements ResultsService. Stored results are final, so
// anything read once can be served from the cache indefinitely.
type resultsService struct {
	uowFactory UnitOfWorkFactory
	cache      *lru.Cache[string, *models.DrawResult]
}

// NewResultsService creates a new results service
func NewResultsService(uowFactory UnitOfWorkFactory, cacheSize int) (ResultsService, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultResultCacheSize
	}
	cache, err := lru.New[string, *models.DrawResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &resultsService{
		uowFactory: uowFactory,
		cache:      cache,
	}, nil
}

// GetResult returns the stored result for a period
func (s *resultsService) GetResult(ctx context.Context, period string) (*models.DrawResult, error) {
	if _, _, err := ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if result, ok := s.cache.Get(period); ok {
		return result, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := uow.DrawResultRepository().GetByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get draw result: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: no draw result for %s", ErrNotFound, period)
	}

	s.cache.Add(period, result)
	return result, nil
}

// GetLatestResult always reads the store since a newer draw may have landed
func (s *resultsService) GetLatestResult(ctx context.Context) (*models.DrawResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	result, err := uow.DrawResultRepository().GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest draw result: %w", err)
	}
	if result != nil {
		s.cache.Add(result.Period, result)
	}
	return result, nil
}
