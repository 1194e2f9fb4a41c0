// Package session keeps the signed-in user's access token in client-local
// storage. All readers and writers go through a Manager so the HTTP layer and
// the chat client share one view of the session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Key is the fixed storage key the session is persisted under.
const Key = "user"

var (
	ErrInvalidSession = errors.New("internal/session: session has no token")
	ErrKeyNotFound    = errors.New("internal/session: key not found")
)

// Session is the persisted identity of the signed-in user.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Store is a small key/value storage. Get returns ErrKeyNotFound for a
// missing key.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type subscriber func(Session, bool)

// Manager reads and writes the session and notifies subscribers on change.
type Manager struct {
	store Store

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]subscriber
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		subs:  make(map[uint64]subscriber),
	}
}

// Get returns the current session. A missing or unreadable entry is reported
// as no session.
func (m *Manager) Get() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (Session, bool) {
	raw, err := m.store.Get(Key)
	if err != nil {
		return Session{}, false
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.Token == "" {
		return Session{}, false
	}
	return s, true
}

// Token returns the current access token or "".
func (m *Manager) Token() string {
	s, _ := m.Get()
	return s.Token
}

// Set replaces the current session.
func (m *Manager) Set(s Session) error {
	if s.Token == "" {
		return ErrInvalidSession
	}

	p, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("internal/session: encode: %w", err)
	}

	m.mu.Lock()
	if err := m.store.Set(Key, p); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("internal/session: store: %w", err)
	}
	subs := m.snapshot()
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s, true)
	}
	return nil
}

// Clear removes the session. Clearing an absent session is not an error and
// does not notify subscribers.
func (m *Manager) Clear() error {
	m.mu.Lock()
	_, had := m.load()
	if err := m.store.Delete(Key); err != nil && !errors.Is(err, ErrKeyNotFound) {
		m.mu.Unlock()
		return fmt.Errorf("internal/session: delete: %w", err)
	}
	subs := m.snapshot()
	m.mu.Unlock()

	if had {
		for _, fn := range subs {
			fn(Session{}, false)
		}
	}
	return nil
}

// OnChange registers fn to run after every Set and every Clear that removed a
// session. The returned function unsubscribes.
func (m *Manager) OnChange(fn func(Session, bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) snapshot() []subscriber {
	subs := make([]subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return subs
}
