package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory keeps values in process memory. Entries live for the configured TTL after their
// last write, or forever when the TTL is zero.
type Memory struct {
	items *gocache.Cache
	ttl   time.Duration
}

// NewMemory builds an in-process accessor.
func NewMemory(ttl time.Duration) *Memory {
	expiry := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiry = ttl
		cleanup = ttl / 2
		if cleanup < time.Minute {
			cleanup = time.Minute
		}
	}
	return &Memory{items: gocache.New(expiry, cleanup), ttl: ttl}
}

func (m *Memory) Read(_ context.Context, key string) (string, bool) {
	value, ok := m.items.Get(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok && s != ""
}

func (m *Memory) Write(ctx context.Context, key, value string) {
	if value == "" {
		m.Delete(ctx, key)
		return
	}
	m.items.Set(key, value, gocache.DefaultExpiration)
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.items.Delete(key)
}

// Len reports how many keys are currently held.
func (m *Memory) Len() int {
	return m.items.ItemCount()
}
