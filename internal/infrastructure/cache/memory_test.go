package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staged struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestMemoryStore_PutGetReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := staged{Name: "order", Items: []string{"a"}}
	require.NoError(t, store.Put(ctx, "k", value, time.Minute))
	value.Items[0] = "changed"

	var got staged
	require.NoError(t, store.Get(ctx, "k", &got))
	assert.Equal(t, "order", got.Name)
	assert.Equal(t, []string{"a"}, got.Items)
}

func TestMemoryStore_MissingAndExpiredEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var got staged
	assert.ErrorIs(t, store.Get(ctx, "missing", &got), repository.ErrStagedEntryNotFound)

	require.NoError(t, store.Put(ctx, "k", staged{Name: "x"}, time.Second))
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, store.Get(ctx, "k", &got), repository.ErrStagedEntryNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_SweepAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "short", 1, time.Second))
	require.NoError(t, store.Put(ctx, "long", 2, time.Hour))
	require.NoError(t, store.Put(ctx, "gone", 3, time.Hour))

	require.NoError(t, store.Delete(ctx, "gone"))
	now = now.Add(time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	var got int
	require.NoError(t, store.Get(ctx, "long", &got))
	assert.Equal(t, 2, got)
}
