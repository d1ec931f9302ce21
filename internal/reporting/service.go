package reporting

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirana-erp/kirana-erp/internal/shared"
)

// Repository exposes the aggregate queries the service relies on.
type Repository interface {
	SalesTotal(ctx context.Context, ownerID int64, from, to time.Time) (float64, int, error)
	RevenueTotal(ctx context.Context, ownerID int64, from, to time.Time) (float64, error)
	RealizedCost(ctx context.Context, ownerID int64, from, to time.Time) (float64, error)
	ReceivableTotal(ctx context.Context, ownerID int64) (float64, error)
	ChequesInFlightTotal(ctx context.Context, ownerID int64) (float64, error)
}

// Service coordinates metrics query execution with the cache layer.
// Concurrent identical requests collapse onto one loader run.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// QueryMetrics computes the dashboard summary for the window.
func (s *Service) QueryMetrics(ctx context.Context, from, to time.Time) (Metrics, error) {
	ownerID := shared.TenantFromContext(ctx)
	if ownerID == 0 {
		return Metrics{}, shared.ErrTenantRequired
	}

	loader := func(ctx context.Context) (interface{}, error) {
		return s.load(ctx, ownerID, from, to)
	}

	keyBase := keyMetrics(ownerID, from, to)
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return Metrics{}, err
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var metrics Metrics
		if err := s.cache.FetchJSON(ctx, key, &metrics, loader); err != nil {
			return Metrics{}, err
		}
		return metrics, nil
	})
	if err != nil {
		return Metrics{}, err
	}
	return result.(Metrics), nil
}

func (s *Service) load(ctx context.Context, ownerID int64, from, to time.Time) (Metrics, error) {
	sales, billCount, err := s.repo.SalesTotal(ctx, ownerID, from, to)
	if err != nil {
		return Metrics{}, err
	}
	revenue, err := s.repo.RevenueTotal(ctx, ownerID, from, to)
	if err != nil {
		return Metrics{}, err
	}
	cost, err := s.repo.RealizedCost(ctx, ownerID, from, to)
	if err != nil {
		return Metrics{}, err
	}
	receivable, err := s.repo.ReceivableTotal(ctx, ownerID)
	if err != nil {
		return Metrics{}, err
	}
	cheques, err := s.repo.ChequesInFlightTotal(ctx, ownerID)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		From:            from,
		To:              to,
		Sales:           sales,
		Revenue:         revenue,
		Profit:          revenue - cost,
		Receivable:      receivable,
		ChequesInFlight: cheques,
		BillCount:       billCount,
	}, nil
}

// InvalidateCache bumps the shared cache version after billing writes.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
