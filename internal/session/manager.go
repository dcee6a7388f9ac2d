package session

import (
	"sync"
	"time"

	"qvuew/internal/models"
	"qvuew/internal/queue"
	"qvuew/internal/store"
)

// Manager owns one Session per business and fans ticks out to all of them.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	history   store.HistoryRepository
	rates     store.RateCard
	publisher Publisher
	options   Options
}

func NewManager(history store.HistoryRepository, rates store.RateCard, publisher Publisher, options Options) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		history:   history,
		rates:     rates,
		publisher: publisher,
		options:   options,
	}
}

func (m *Manager) Session(businessID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[businessID]
	if !ok {
		s = New(businessID, m.history, m.rates, m.publisher, m.options)
		m.sessions[businessID] = s
	}
	return s
}

// Lookup returns the session for businessID without creating one.
func (m *Manager) Lookup(businessID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[businessID]
	return s, ok
}

// Snapshot reads a business's state. Businesses with no session yet get an
// empty snapshot and no session is created.
func (m *Manager) Snapshot(businessID string) Snapshot {
	if s, ok := m.Lookup(businessID); ok {
		return s.Snapshot()
	}
	limit := m.options.UndoLimit
	if limit <= 0 {
		limit = queue.DefaultUndoLimit
	}
	return Snapshot{
		BusinessID: businessID,
		Customers:  []models.Customer{},
		Undo:       UndoState{Entries: []queue.LedgerEntry{}, Limit: limit},
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) Tick(now time.Time) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Tick(now)
	}
}
