package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryClient is an in-process Store used when Redis is not configured
// and in tests. Locks and processed marks only live as long as the process.
type MemoryClient struct {
	mu    sync.Mutex
	data  map[string]time.Time
	locks map[string]time.Time
	now   func() time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		data:  make(map[string]time.Time),
		locks: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (m *MemoryClient) Close() error {
	return nil
}

func (m *MemoryClient) IsProcessed(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, exists := m.data[key]
	if !exists {
		return false, nil
	}
	if !expires.IsZero() && m.now().After(expires) {
		delete(m.data, key)
		return false, nil
	}
	return true, nil
}

func (m *MemoryClient) MarkProcessed(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.data[key] = expires
	return nil
}

func (m *MemoryClient) ClearProcessed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]time.Time)
	return nil
}

func (m *MemoryClient) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expires, held := m.locks[name]; held && m.now().Before(expires) {
		return nil, ErrLockHeld
	}

	expires := m.now().Add(ttl)
	m.locks[name] = expires

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// a lock that expired may belong to a newer holder
		if m.locks[name].Equal(expires) {
			delete(m.locks, name)
		}
	}
	return release, nil
}
