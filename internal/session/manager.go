package session

import (
	"fmt"
	"sync"
	"time"

	"egzersizlab/internal/catalog"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Manager owns the in-memory session registry. Sessions are never
// persisted mid-session: they live here from creation until submission,
// explicit close or the janitor sweep.
type Manager struct {
	mu       sync.Mutex
	log      *zap.Logger
	cat      *catalog.Catalog
	sessions map[string]*Session
	ttl      time.Duration
	cron     *cron.Cron
}

func NewManager(cat *catalog.Catalog, ttl time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		log:      log,
		cat:      cat,
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// StartJanitor schedules the periodic sweep of idle sessions.
func (m *Manager) StartJanitor() error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", m.sweep); err != nil {
		return fmt.Errorf("could not schedule session janitor: %w", err)
	}
	c.Start()
	m.cron = c
	m.log.Info("Session janitor started", zap.Duration("ttl", m.ttl))
	return nil
}

// StopJanitor stops the sweep scheduler.
func (m *Manager) StopJanitor() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// Create derives the session's test list once from the reported pain
// regions and registers the new session.
func (m *Manager) Create(userID int, categoryID string, regions []string) (*Session, error) {
	cat, ok := m.cat.Category(categoryID)
	if !ok {
		return nil, fmt.Errorf("unknown test category %q", categoryID)
	}

	tests := catalog.FilterTests(cat, regions)
	s := newSession(uuid.NewString(), userID, categoryID, regions, tests, m.log)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info("Session created",
		zap.String("sessionID", s.ID),
		zap.Int("userID", userID),
		zap.String("category", categoryID),
		zap.Int("tests", len(tests)),
	)
	return s, nil
}

// Get returns a registered session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears a session down and removes it from the registry.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Teardown()
		m.log.Info("Session closed", zap.String("sessionID", id))
	}
}

// sweep tears down sessions idle past the TTL so abandoned sessions
// cannot keep a camera handle or timer alive indefinitely.
func (m *Manager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.IdleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Teardown()
		m.log.Info("Idle session swept", zap.String("sessionID", s.ID))
	}
}
