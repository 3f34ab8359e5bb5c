package cache

import (
	"context"
	"time"
)

// SnapshotCache holds the read-only lists a screen loads before a draft is
// built. Values are stored as JSON.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

func (NoopSnapshotCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}

const (
	KeyProducts   = "snapshot:products"
	KeyCustomers  = "snapshot:customers"
	KeySuppliers  = "snapshot:suppliers"
	KeyCategories = "snapshot:categories"
)
