package dialog

import "sync"

// Store maps user identities to sessions. Get never fails: unknown users
// receive a default idle session. Update applies the mutator atomically with
// respect to other updates for the same user; different users are independent.
type Store interface {
	Get(userID int64) Session
	Update(userID int64, fn func(*Session))
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
}

// memoryStore keeps sessions for the lifetime of the process. The outer lock
// only guards the map; each session carries its own lock so users do not
// contend with each other.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*sessionEntry
}

// NewMemoryStore constructs the in-memory Store used in production and tests.
// Sessions never expire; a restart forgets them all.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[int64]*sessionEntry)}
}

func (m *memoryStore) entry(userID int64) *sessionEntry {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.entries[userID]; ok {
		return e
	}
	e = &sessionEntry{session: Session{Stage: StageIdle}}
	m.entries[userID] = e
	return e
}

// Get returns a copy of the user's session, creating a default one if needed.
func (m *memoryStore) Get(userID int64) Session {
	e := m.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Update runs the mutator under the session's lock.
func (m *memoryStore) Update(userID int64, fn func(*Session)) {
	if fn == nil {
		return
	}
	e := m.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.session)
}
