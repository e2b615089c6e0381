package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memoryCache struct {
	values map[string][]byte
}

var _ CacheService = (*memoryCache)(nil)

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string][]byte)}
}

func (m *memoryCache) Get(key string) ([]byte, error) {
	value, ok := m.values[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (m *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *memoryCache) Delete(key string) error {
	if _, ok := m.values[key]; !ok {
		return ErrCacheMiss
	}
	delete(m.values, key)
	return nil
}

func TestScrapeCooldown(t *testing.T) {
	cooldown := NewScrapeCooldown(newMemoryCache(), time.Minute)

	assert.False(t, cooldown.Active("Bar Manolo"))

	assert.NoError(t, cooldown.Mark("Bar Manolo"))
	assert.True(t, cooldown.Active("Bar Manolo"))

	// Accents and casing fold to the same key
	assert.True(t, cooldown.Active("BAR MANÓLO"))

	assert.NoError(t, cooldown.Clear("bar manolo"))
	assert.False(t, cooldown.Active("Bar Manolo"))

	// Clearing an absent marker is not an error
	assert.NoError(t, cooldown.Clear("Bar Manolo"))
}
