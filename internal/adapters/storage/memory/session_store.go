package memory

import (
	"fmt"
	"sync"

	"github.com/PabloGalante/studychat/internal/app/conversation"
	"github.com/PabloGalante/studychat/internal/domain"
)

// SessionStore keeps live conversation sessions in a map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*conversation.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*conversation.Session),
	}
}

func (s *SessionStore) CreateSession(session *conversation.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID()]; exists {
		return fmt.Errorf("create %s: %w", session.ID(), domain.ErrSessionExists)
	}

	s.sessions[session.ID()] = session
	return nil
}

func (s *SessionStore) GetSession(id domain.SessionID) (*conversation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, domain.ErrSessionNotFound)
	}

	return sess, nil
}

func (s *SessionStore) DeleteSession(id domain.SessionID) (*conversation.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("delete %s: %w", id, domain.ErrSessionNotFound)
	}
	delete(s.sessions, id)

	return sess, nil
}

// DeleteAll forgets every session and returns them. Closing them is up to
// the caller.
func (s *SessionStore) DeleteAll() []*conversation.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*conversation.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		out = append(out, sess)
		delete(s.sessions, id)
	}
	return out
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
