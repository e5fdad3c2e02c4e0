package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"evidence-explorer/internal/model"
)

var timeNow = time.Now

// Manager keeps the live sessions of the gateway. Sessions idle for longer
// than the TTL are closed by the cleanup ticker.
type Manager struct {
	deps Deps
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(deps Deps, ttl time.Duration) *Manager {
	return &Manager{deps: deps, ttl: ttl, sessions: make(map[string]*Session)}
}

func (m *Manager) Create(actor model.AuditActor) *Session {
	s := newSession(uuid.NewString(), actor, m.deps)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("session created", "session_id", s.ID, "user_id", actor.UserID)
	return s
}

// Get returns the session owned by userID and marks it as used.
func (m *Manager) Get(id string, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if s.Actor.UserID != userID {
		return nil, model.ErrForbidden
	}

	s.touch(timeNow())
	return s, nil
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired closes sessions idle for longer than the TTL.
func (m *Manager) CleanupExpired() int {
	cutoff := timeNow().Add(-m.ttl)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		slog.Info("session expired", "session_id", s.ID)
	}

	return len(expired)
}

// StartCleanupTicker runs CleanupExpired on a regular interval until ctx is cancelled.
func (m *Manager) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpired()
		}
	}
}

// Close closes every session and waits for their uploads to stop.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		s.Wait()
	}
}
