package service

import (
	"sync"

	"github.com/google/uuid"
)

// sessionStore maps opaque bearer tokens to member ids. Tokens live for the
// lifetime of the process; login simply issues a fresh one.
type sessionStore struct {
	mu      sync.RWMutex
	byToken map[string]int64
}

func newSessionStore() *sessionStore {
	return &sessionStore{byToken: make(map[string]int64)}
}

func (s *sessionStore) Issue(memberID int64) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.byToken[token] = memberID
	s.mu.Unlock()
	return token
}

func (s *sessionStore) MemberID(token string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[token]
	return id, ok
}

func (s *sessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.byToken, token)
	s.mu.Unlock()
}
