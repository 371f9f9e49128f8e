package session

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/placement-portal/internal/model"
)

// MemoryStore is the fallback used when Redis is not reachable.  Sessions
// do not survive a restart.  Expired entries are dropped when read and,
// at most once per TTL, swept on Save.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	data      map[string]memEntry
	lastSweep time.Time
}

type memEntry struct {
	frames  []model.Identity
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, data: map[string]memEntry{}}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now()
	if !e.expires.After(now) {
		delete(m.data, id)
		return nil, ErrNotFound
	}
	e.expires = now.Add(m.ttl)
	m.data[id] = e
	return &Session{ID: id, Frames: append([]model.Identity(nil), e.frames...)}, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if now.Sub(m.lastSweep) >= m.ttl {
		m.sweep(now)
	}
	m.data[s.ID] = memEntry{
		frames:  append([]model.Identity(nil), s.Frames...),
		expires: now.Add(m.ttl),
	}
	return nil
}

// sweep removes expired entries; m.mu must be held.
func (m *MemoryStore) sweep(now time.Time) {
	for id, e := range m.data {
		if !e.expires.After(now) {
			delete(m.data, id)
		}
	}
	m.lastSweep = now
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}
