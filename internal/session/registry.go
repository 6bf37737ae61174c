package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docsight/backend/internal/chat"
	"github.com/docsight/backend/pkg/logger"
)

// Session holds one conversation. Turns within a session are strictly
// sequential: Do holds the session lock for the whole turn.
type Session struct {
	ID string

	mu      sync.Mutex
	history chat.History
}

// Do runs fn against the current history and commits the returned history if
// fn succeeds. On error the stored history is left unchanged.
func (s *Session) Do(fn func(history chat.History) (chat.History, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.history)
	if err != nil {
		return err
	}
	s.history = next
	return nil
}

// History returns a snapshot of the session transcript.
func (s *Session) History() chat.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Registry tracks live sessions by id. Sessions are independent: turns in
// different sessions run concurrently.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	greeting string
}

func NewRegistry(greeting string) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		greeting: greeting,
	}
}

// GetOrCreate returns the session with the given id, creating it with a
// greeting turn if it does not exist. An empty id allocates a fresh session.
func (r *Registry) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}

	s = &Session{
		ID:      id,
		history: chat.NewHistory(r.greeting),
	}
	r.sessions[id] = s

	logger.Debug("Session created", zap.String("session_id", id))

	return s
}

// Get returns an existing session or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
