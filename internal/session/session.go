package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/attendance-tracker-api/internal/identity"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager keeps in-memory sessions that bind a session id to a scope
type Manager struct {
	resolver identity.Resolver
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*models.Session

	log zerolog.Logger
}

// NewManager creates a session manager. A zero ttl means sessions never expire.
func NewManager(resolver identity.Resolver, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*models.Session),
		log:      log.With().Str("component", "session").Logger(),
	}
}

// SetClock replaces the time source
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Create opens a session for email
func (m *Manager) Create(email string) (*models.Session, error) {
	scope, err := m.resolver.Resolve(email)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &models.Session{
		ID:        uuid.New().String(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Scope:     scope,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		s.ExpiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info().Str("scope", scope.String()).Msg("Session opened")
	return s, nil
}

// Get returns a live session. Expired sessions are evicted.
func (m *Manager) Get(id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, fmt.Errorf("%w: %s expired", models.ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete closes a session. Unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep evicts expired sessions and returns how many were removed
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper runs Sweep every interval until ctx is done
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug().Int("removed", n).Msg("Expired sessions swept")
			}
		}
	}
}
