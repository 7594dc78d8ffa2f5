// Package session maps conversation sessions to their answer composers. Each
// session owns one composer and one conversation memory; turns within a
// session are serialized by the composer itself.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/chat"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is the externally visible state of one conversation.
type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	TurnCount      int       `json:"turn_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// ComposerFactory builds a fresh composer (with its own memory) for a new
// session.
type ComposerFactory func() (*chat.Composer, error)

// Manager is the session registry.
type Manager struct {
	mu                sync.RWMutex
	entries           map[string]*entry
	factory           ComposerFactory
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

type entry struct {
	session  *Session
	composer *chat.Composer
}

// NewManager creates a registry. Sessions idle longer than inactivityTimeout
// are expired by the janitor (default 30 minutes).
func NewManager(factory ComposerFactory, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		entries:           make(map[string]*entry),
		factory:           factory,
		inactivityTimeout: inactivityTimeout,
	}
}

// SetExpireHook registers a callback invoked for each expired session.
func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create starts a new session with its own composer and memory.
func (m *Manager) Create() (*Session, error) {
	composer, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to build composer: %w", err)
	}

	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = &entry{session: s, composer: composer}
	return clone(s), nil
}

// Get returns a snapshot of the session's state.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[sessionID]
	if !ok || e.session.Status != StatusActive {
		return nil, ErrNotFound
	}
	return clone(e.session), nil
}

// Ask routes a question to the session's composer. An empty sessionID starts
// a new session. The returned Session reflects the post-turn state.
func (m *Manager) Ask(ctx context.Context, sessionID, question string) (string, *Session, error) {
	if sessionID == "" {
		s, err := m.Create()
		if err != nil {
			return "", nil, err
		}
		sessionID = s.ID
	}

	m.mu.RLock()
	e, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok || e.session.Status != StatusActive {
		return "", nil, ErrNotFound
	}

	answer, err := e.composer.Ask(ctx, question)
	if err != nil {
		// The janitor may be mutating this session concurrently; snapshot
		// under the lock.
		m.mu.RLock()
		snapshot := clone(e.session)
		m.mu.RUnlock()
		return "", snapshot, err
	}

	m.mu.Lock()
	e.session.TurnCount++
	e.session.LastActivityAt = time.Now().UTC()
	snapshot := clone(e.session)
	m.mu.Unlock()

	return answer, snapshot, nil
}

// End terminates a session and releases its memory.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	e.session.Status = StatusEnded
	e.session.LastActivityAt = time.Now().UTC()
	snapshot := clone(e.session)
	delete(m.entries, sessionID)
	return snapshot, nil
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StartJanitor expires inactive sessions in the background until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, e := range m.entries {
		if now.Sub(e.session.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		e.session.Status = StatusEnded
		e.session.LastActivityAt = now
		expired = append(expired, clone(e.session))
		delete(m.entries, id)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
