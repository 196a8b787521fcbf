package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amogham/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s storage.Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "cart")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "missing key should be ErrNotFound, got %v", err)

	require.NoError(t, s.Set(ctx, "cart", []byte(`[{"id":"sw1-250g"}]`)))
	got, err := s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"sw1-250g"}]`, string(got))

	require.NoError(t, s.Set(ctx, "cart", []byte(`[]`)))
	got, err = s.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Delete(ctx, "cart"))
	_, err = s.Get(ctx, "cart")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "cart"))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, storage.NewMemoryStorage())
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStorage()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStorage(t *testing.T) {
	s, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestFileStorage_UnsafeKeys(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "../escape:cart", []byte("1")))
	got, err := s.Get(ctx, "../escape:cart")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

func TestNamespaced_IsolatesKeys(t *testing.T) {
	ctx := context.Background()
	inner := storage.NewMemoryStorage()
	a := storage.Namespaced(inner, "session-a")
	b := storage.Namespaced(inner, "session-b")

	require.NoError(t, a.Set(ctx, "cart", []byte("A")))
	require.NoError(t, b.Set(ctx, "cart", []byte("B")))

	got, err := a.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "A", string(got))

	got, err = inner.Get(ctx, "session-b:cart")
	require.NoError(t, err)
	assert.Equal(t, "B", string(got))
}
