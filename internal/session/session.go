// Package session manages builder editing sessions. Each session owns one
// form document for its whole lifetime (single writer, no sharing) and is
// written through to a Store so in-progress work survives a restart.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orms-project/orms/internal/form"
	"github.com/orms-project/orms/internal/publish"
)

// Session holds the state of one open builder.
type Session struct {
	ID       string           `json:"id"`
	Editor   form.Editor      `json:"editor"`
	Workflow publish.Workflow `json:"workflow"`

	// SourceFormID is the backend id the document was loaded from, if any.
	// When the source was a draft, a successful publish deletes it.
	SourceFormID   string `json:"source_form_id,omitempty"`
	SourceWasDraft bool   `json:"source_was_draft,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewSession starts a session on the default one-section document.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Editor:       form.NewEditor(),
		Workflow:     publish.New(),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now()
}

// IsExpired reports whether the session exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle reports whether the session has been inactive longer than timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return time.Since(s.LastActiveAt) > timeout
}

// Manager handles session creation, lookup, mutation and cleanup. All
// mutation goes through Update, which serializes writers; a session has
// exactly one writer by contract, the lock defends the map and the
// write-through.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	store       Store
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a manager backed by store, rehydrating any sessions
// the store still holds.
func NewManager(ctx context.Context, store Store, maxAge, idleTimeout time.Duration) (*Manager, error) {
	m := &Manager{
		sessions:    make(map[string]*Session),
		store:       store,
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
	saved, err := store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range saved {
		if s.IsExpired(maxAge) || s.IsIdle(idleTimeout) {
			continue
		}
		m.sessions[s.ID] = s
	}
	return m, nil
}

// Create starts a new session and persists it.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s := NewSession()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get retrieves a session by id. Returns nil if unknown or expired.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(ctx, id)
		return nil
	}
	return s
}

// Update applies fn to the session under the manager lock and persists the
// result. If fn errors, neither the in-memory session nor the store change.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Work on a copy so a failed fn leaves the session untouched.
	work := *s
	if err := fn(&work); err != nil {
		return nil, err
	}
	work.Touch()
	if err := m.store.Save(ctx, &work); err != nil {
		return nil, err
	}
	*s = work
	return s, nil
}

// Remove deletes a session from memory and the store.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	m.store.Delete(ctx, id)
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()
	for _, id := range stale {
		m.store.Delete(ctx, id)
	}
}
