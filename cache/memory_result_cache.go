package cache

import (
	"sync"
)

type MemoryResultCache struct {
	mu         sync.Mutex
	generation int64
	entries    map[string][]byte
}

func NewMemoryCache() *MemoryResultCache {
	return &MemoryResultCache{entries: map[string][]byte{}}
}

func (cache *MemoryResultCache) Get(key string) ([]byte, int64, bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	value, ok := cache.entries[key]
	return value, cache.generation, ok, nil
}

// Set drops values computed in an earlier generation.
func (cache *MemoryResultCache) Set(key string, generation int64, value []byte) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	if generation != cache.generation {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	cache.entries[key] = stored
	return nil
}

func (cache *MemoryResultCache) Invalidate() error {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.generation++
	cache.entries = map[string][]byte{}
	return nil
}

// Len returns the number of cached entries.
func (cache *MemoryResultCache) Len() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	return len(cache.entries)
}
