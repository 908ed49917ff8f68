package interview

import "sync"

// Store keeps at most one live session per user. Register replaces any
// prior session for the user atomically, there is no merging.
type Store interface {
	Get(userID string) (*Session, bool)
	Put(userID string, session *Session)
	Remove(userID string)
}

// MemoryStore is the process-memory Store used in production and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[userID]
	return session, ok
}

func (m *MemoryStore) Put(userID string, session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = session
}

func (m *MemoryStore) Remove(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
