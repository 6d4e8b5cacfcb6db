package cache

import (
	"strconv"
	"time"

	"gopkg.in/redis.v5"
)

const KEY_PREFIX = "bookstore:reports:"

// RedisResultCache namespaces entries by a generation counter kept in redis.
// Invalidate bumps the counter, so stale entries are never read again and
// expire through their TTL.
type RedisResultCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisResultCache {
	return &RedisResultCache{client, ttl}
}

func (cache *RedisResultCache) generationKey() string {
	return KEY_PREFIX + "generation"
}

func (cache *RedisResultCache) generation() (int64, error) {
	generation, err := cache.Client.Get(cache.generationKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return generation, err
}

func (cache *RedisResultCache) entryKey(generation int64, key string) string {
	return KEY_PREFIX + strconv.FormatInt(generation, 10) + ":" + key
}

func (cache *RedisResultCache) Get(key string) ([]byte, int64, bool, error) {
	generation, err := cache.generation()
	if err != nil {
		return nil, 0, false, err
	}

	value, err := cache.Client.Get(cache.entryKey(generation, key)).Bytes()
	if err == redis.Nil {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, err
	}
	return value, generation, true, nil
}

// Set writes under the generation the value was looked up in. After an
// Invalidate that generation is never read again.
func (cache *RedisResultCache) Set(key string, generation int64, value []byte) error {
	return cache.Client.Set(cache.entryKey(generation, key), value, cache.TTL).Err()
}

func (cache *RedisResultCache) Invalidate() error {
	return cache.Client.Incr(cache.generationKey()).Err()
}
