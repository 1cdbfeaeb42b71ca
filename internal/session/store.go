package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store keeps session state. Update applies transitions atomically for the
// memory store; the redis store is last-write-wins across processes.
type Store interface {
	Get(ctx context.Context, id string) (State, error)
	Update(ctx context.Context, id string, transitions ...Transition) (State, error)
}

// MemoryStore is a process-local Store with idle expiry.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]State
}

// NewMemoryStore returns a store whose sessions expire after ttl without
// updates. A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]State),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, transitions ...Transition) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.loadLocked(id)
	apply(&s, m.now(), transitions)
	m.sessions[id] = s
	return s, nil
}

func (m *MemoryStore) loadLocked(id string) State {
	s, ok := m.sessions[id]
	if !ok {
		return New(id)
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, id)
		return New(id)
	}
	return s
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were dropped.
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every half ttl until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, logger *zap.Logger) {
	interval := m.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Info("dropped idle sessions", zap.Int("count", n))
			}
		}
	}
}
