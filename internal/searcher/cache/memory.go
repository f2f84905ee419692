package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryBackend keeps the most recently used rankings in process.
type MemoryBackend struct {
	entries *lru.Cache[string, []byte]
}

func NewMemoryBackend(size int) (*MemoryBackend, error) {
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &MemoryBackend{entries: entries}, nil
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.entries.Get(key)
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.entries.Add(key, value)
	return nil
}

func (m *MemoryBackend) Flush(_ context.Context) (int64, error) {
	n := m.entries.Len()
	m.entries.Purge()
	return int64(n), nil
}
