package service

import (
	"context"
	"sync"

	"github.com/brightsteps/brightsteps-backend/internal/model"
)

// Manager hands out one live Session handle per (exam, user) so the debounce
// state survives across HTTP requests. A handle stays registered for the
// lifetime of the process; Load's local fast path makes re-acquisition cheap
// after a restart.
type Manager struct {
	engine *Engine

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager around the engine.
func NewManager(engine *Engine) *Manager {
	return &Manager{
		engine:   engine,
		sessions: make(map[string]*Session),
	}
}

func sessionKey(examID, userKey string) string {
	return examID + "|" + userKey
}

// Acquire returns the registered handle for (exam, identity), loading one
// through the engine on first use.
func (m *Manager) Acquire(ctx context.Context, exam *model.Exam, identity model.Identity) (*Session, error) {
	key := sessionKey(exam.ID, identity.Key())

	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	// Load outside the lock: it may hit the network for recovery.
	s, err := m.engine.Load(ctx, exam, identity)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[key]; ok {
		// Concurrent acquisition raced us; keep the first handle.
		return existing, nil
	}
	m.sessions[key] = s
	return s, nil
}

// Evict drops the registered handle, forcing the next Acquire through
// Engine.Load. Used after destructive operations in tests and admin tooling.
func (m *Manager) Evict(examID, userKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(examID, userKey))
}
