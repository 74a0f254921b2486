package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/parley/internal/engine/state"
)

// Store keeps session state in process memory. Suitable for a single
// instance; state is lost on restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state.SessionState
}

func New() *Store {
	return &Store{sessions: make(map[string]*state.SessionState)}
}

func (s *Store) Get(ctx context.Context, sessionID string) (*state.SessionState, error) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return state.New(sessionID), nil
	}
	return st.Clone(), nil
}

func (s *Store) Save(ctx context.Context, st *state.SessionState) error {
	c := st.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.sessions[c.SessionID] = c
	s.mu.Unlock()
	return nil
}

func (s *Store) Reset(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}
