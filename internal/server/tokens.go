package server

import (
	"sync"

	"github.com/google/uuid"
)

// tokenStore maps opaque bearer cookies to user identities. Tokens live
// for the process lifetime, matching the in-memory session model.
type tokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func newTokenStore() *tokenStore {
	return &tokenStore{tokens: make(map[string]string)}
}

func (t *tokenStore) Issue(userID string) string {
	token := uuid.NewString()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[token] = userID
	return token
}

func (t *tokenStore) Lookup(token string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	userID, ok := t.tokens[token]
	return userID, ok
}

func (t *tokenStore) Revoke(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tokens, token)
}
