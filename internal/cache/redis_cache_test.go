package cache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func TestRedisSnapshotCacheGet(t *testing.T) {
	ctx := t.Context()
	payload, err := json.Marshal(snapshot{IDs: []string{"p-1", "p-2"}, Count: 2})
	require.NoError(t, err)

	t.Run("hit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := NewRedisSnapshotCache(client)
		mock.ExpectGet(KeyProducts).SetVal(string(payload))

		var out snapshot
		found, err := c.Get(ctx, KeyProducts, &out)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, snapshot{IDs: []string{"p-1", "p-2"}, Count: 2}, out)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := NewRedisSnapshotCache(client)
		mock.ExpectGet(KeyProducts).SetErr(redis.Nil)

		var out snapshot
		found, err := c.Get(ctx, KeyProducts, &out)
		require.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := NewRedisSnapshotCache(client)
		mock.ExpectGet(KeyProducts).SetErr(errors.New("connection refused"))

		var out snapshot
		found, err := c.Get(ctx, KeyProducts, &out)
		assert.Error(t, err)
		assert.False(t, found)
	})

	t.Run("corrupt value", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		c := NewRedisSnapshotCache(client)
		mock.ExpectGet(KeyProducts).SetVal("{not json")

		var out snapshot
		found, err := c.Get(ctx, KeyProducts, &out)
		assert.Error(t, err)
		assert.False(t, found)
	})
}

func TestRedisSnapshotCacheSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisSnapshotCache(client)
	value := snapshot{IDs: []string{"s-1"}, Count: 1}
	payload, err := json.Marshal(value)
	require.NoError(t, err)

	mock.ExpectSet(KeySuppliers, payload, 30*time.Second).SetVal("OK")
	require.NoError(t, c.Set(t.Context(), KeySuppliers, value, 30*time.Second))
	require.NoError(t, c.Set(t.Context(), KeySuppliers, nil, time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotCacheInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisSnapshotCache(client)

	mock.ExpectDel(KeyProducts, KeyCategories).SetVal(2)
	require.NoError(t, c.Invalidate(t.Context(), KeyProducts, KeyCategories))
	require.NoError(t, c.Invalidate(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoopSnapshotCache(t *testing.T) {
	var c SnapshotCache = NoopSnapshotCache{}
	var out snapshot
	found, err := c.Get(t.Context(), KeyProducts, &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Set(t.Context(), KeyProducts, out, time.Second))
	assert.NoError(t, c.Invalidate(t.Context(), KeyProducts))
}
