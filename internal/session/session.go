// Package session provides per-client key/value flags keyed by session ID.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FlagTemplateFetched marks a session that has fetched the unit template.
const FlagTemplateFetched = "templateFetched"

// Store holds string flags per session. A flag lives as long as its session.
type Store interface {
	// GetFlag returns the value of key for sessionID and whether it is set.
	GetFlag(ctx context.Context, sessionID, key string) (string, bool, error)
	// SetFlag sets key for sessionID and extends the session's lifetime.
	SetFlag(ctx context.Context, sessionID, key, value string) error
}

// NewID returns a fresh random session identifier.
func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id looks like an identifier issued by NewID.
func IsValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.Version() == 4
}

type entry struct {
	flags   map[string]string
	expires time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a mutex-guarded in-process Store with idle expiry.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*entry
}

// NewMemoryStore creates a MemoryStore whose sessions expire after ttl without a write.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// WithClock replaces the time source; used by tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

// GetFlag implements Store.
func (m *MemoryStore) GetFlag(_ context.Context, sessionID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.sessions, sessionID)
		return "", false, nil
	}
	v, ok := e.flags[key]
	return v, ok, nil
}

// SetFlag implements Store.
func (m *MemoryStore) SetFlag(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.sessions[sessionID]
	if !ok || !now.Before(e.expires) {
		e = &entry{flags: make(map[string]string)}
		m.sessions[sessionID] = e
	}
	e.flags[key] = value
	e.expires = now.Add(m.ttl)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for id, e := range m.sessions {
		if !now.Before(e.expires) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of tracked sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
