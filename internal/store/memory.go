package store

import (
	"context"

	"github.com/patrickmn/go-cache"
)

type memoryKV struct {
	c *cache.Cache
}

// NewMemoryKV keeps keys in process memory. A nil cache gets a fresh one.
func NewMemoryKV(c *cache.Cache) KV {
	if c == nil {
		c = cache.New(cache.NoExpiration, 0)
	}
	return &memoryKV{c: c}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	v, found := m.c.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte) error {
	m.c.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}
