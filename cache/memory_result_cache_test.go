package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "genres", Key("genres"))
	assert.Equal(t, "authors:3", Key("authors", "3"))
}

func TestMemoryResultCache(t *testing.T) {
	cache := NewMemoryCache()

	_, generation, found, err := cache.Get("genres")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte(`[{"_id":"Fiction"}]`)
	require.NoError(t, cache.Set("genres", generation, value))
	value[0] = 'x'

	cached, _, found, err := cache.Get("genres")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `[{"_id":"Fiction"}]`, string(cached))
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Invalidate())
	_, next, found, err := cache.Get("genres")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
	assert.Greater(t, next, generation)
}

func TestMemoryResultCacheDropsStaleGeneration(t *testing.T) {
	cache := NewMemoryCache()

	_, generation, _, err := cache.Get("genres")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate())

	require.NoError(t, cache.Set("genres", generation, []byte(`[]`)))
	_, _, found, err := cache.Get("genres")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, cache.Len())
}

func TestRedisEntryKeys(t *testing.T) {
	cache := NewRedisCache(nil, 0)
	assert.Equal(t, "bookstore:reports:generation", cache.generationKey())
	assert.Equal(t, "bookstore:reports:4:authors:1", cache.entryKey(4, Key("authors", "1")))
}
