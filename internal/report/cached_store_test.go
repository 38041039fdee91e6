package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*FileStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	s.gets++
	return s.FileStore.Get(ctx, name)
}

func TestCachedStoreReadThrough(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	backend := &countingStore{FileStore: fs}
	store, err := NewCachedStore(backend)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ucx", []byte("v1")))

	for i := 0; i < 3; i++ {
		data, err := store.Get(ctx, "ucx")
		require.NoError(t, err)
		require.Equal(t, "v1", string(data))
	}
	require.Equal(t, 1, backend.gets, "repeat reads should hit the cache")

	// overwrite invalidates
	require.NoError(t, store.Put(ctx, "ucx", []byte("v2")))
	data, err := store.Get(ctx, "ucx")
	require.NoError(t, err)
	require.Equal(t, "v2", string(data))
	require.Equal(t, 2, backend.gets)
}
