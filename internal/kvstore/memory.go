package kvstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time
}

// MemoryKV is an in-process KV with TTL support
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

// NewMemoryKV creates an empty store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]entry), now: time.Now}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !m.now().Before(e.expires)) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
