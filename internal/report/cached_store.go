package report

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheEntries = 64

// CachedStore is a read-through content cache in front of another Store.
// Stat and List always hit the backend so listing stays authoritative.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, []byte]
}

func NewCachedStore(inner Store) (*CachedStore, error) {
	cache, err := lru.New[string, []byte](defaultCacheEntries)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Put(ctx context.Context, name string, content []byte) error {
	if err := s.inner.Put(ctx, name, content); err != nil {
		return err
	}
	s.cache.Remove(name)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return data, nil
	}
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(name, data)
	return data, nil
}

func (s *CachedStore) Stat(ctx context.Context, name string) (Info, error) {
	return s.inner.Stat(ctx, name)
}

func (s *CachedStore) List(ctx context.Context) ([]Info, error) {
	return s.inner.List(ctx)
}
