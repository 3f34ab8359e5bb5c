package service

import (
	"context"
	"net/url"

	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/cache"
	"github.com/HahshmataLI/Hamza-trader-pos-f/internal/domain"
)

var snapshotQuery = url.Values{"limit": {"1000"}}

// snapshot reads key through the cache and falls back to load on a miss or a
// cache error.
func snapshot[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var cached T
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot cache read failed", "key", key, "error", err)
	}
	if found {
		return cached, nil
	}
	fresh, err := load()
	if err != nil {
		return fresh, err
	}
	if err := s.cache.Set(ctx, key, fresh, s.snapshotTTL); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache write failed", "key", key, "error", err)
	}
	return fresh, nil
}

func (s *Service) productSnapshot(ctx context.Context, session domain.Session) ([]domain.Product, error) {
	return snapshot(ctx, s, cache.KeyProducts, func() ([]domain.Product, error) {
		page, err := s.backend.ListProducts(ctx, session.UpstreamToken, snapshotQuery)
		return page.Items, s.upstreamErr(ctx, session, err)
	})
}

func (s *Service) customerSnapshot(ctx context.Context, session domain.Session) ([]domain.Customer, error) {
	return snapshot(ctx, s, cache.KeyCustomers, func() ([]domain.Customer, error) {
		page, err := s.backend.ListCustomers(ctx, session.UpstreamToken, snapshotQuery)
		return page.Items, s.upstreamErr(ctx, session, err)
	})
}

func (s *Service) supplierSnapshot(ctx context.Context, session domain.Session) ([]domain.Supplier, error) {
	return snapshot(ctx, s, cache.KeySuppliers, func() ([]domain.Supplier, error) {
		page, err := s.backend.ListSuppliers(ctx, session.UpstreamToken, snapshotQuery)
		return page.Items, s.upstreamErr(ctx, session, err)
	})
}

func (s *Service) categorySnapshot(ctx context.Context, session domain.Session) ([]domain.Category, error) {
	return snapshot(ctx, s, cache.KeyCategories, func() ([]domain.Category, error) {
		categories, err := s.backend.ListCategories(ctx, session.UpstreamToken, nil)
		return categories, s.upstreamErr(ctx, session, err)
	})
}

// invalidate drops snapshots a write has made stale.
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache invalidation failed", "keys", keys, "error", err)
	}
}
