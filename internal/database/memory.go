package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johndosdos/eventhub/internal/model"
)

// Memory is an in-process Store used when no database is configured and in
// tests.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]model.User
	passwords map[string]string
	enquiries map[string]model.Enquiry
	messages  map[string][]model.ChatMessage
	contacts  []model.ContactMessage
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]model.User),
		passwords: make(map[string]string),
		enquiries: make(map[string]model.Enquiry),
		messages:  make(map[string][]model.ChatMessage),
	}
}

func (m *Memory) CreateUser(_ context.Context, user model.User, hashedPassword string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return model.User{}, ErrDuplicateEmail
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = time.Now().UTC()

	m.users[user.ID] = user
	m.passwords[user.ID] = hashedPassword
	return user, nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetUserWithPasswordByEmail(_ context.Context, email string) (model.User, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, m.passwords[id], nil
		}
	}
	return model.User{}, "", ErrNotFound
}

func (m *Memory) BanUser(_ context.Context, id, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	u.BannedAt = &at
	u.BanReason = reason
	m.users[id] = u
	return nil
}

func (m *Memory) UnbanUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.BannedAt = nil
	u.BanReason = ""
	m.users[id] = u
	return nil
}

func (m *Memory) VerifyUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Verified = true
	m.users[id] = u
	return nil
}

func (m *Memory) CreateEnquiry(_ context.Context, e model.Enquiry) (model.Enquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = "pending"
	}
	e.CreatedAt = time.Now().UTC()
	m.enquiries[e.ID] = e
	return e, nil
}

func (m *Memory) GetEnquiry(_ context.Context, id string) (model.Enquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.enquiries[id]
	if !ok {
		return model.Enquiry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) ListEnquiriesForUser(_ context.Context, userID string) ([]model.Enquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Enquiry, 0)
	for _, e := range m.enquiries {
		if e.HasParticipant(userID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateVenueMessage(_ context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.enquiries[msg.RequestID]; !ok {
		return model.ChatMessage{}, ErrNotFound
	}

	history := m.messages[msg.RequestID]
	msg.ID = uuid.NewString()
	msg.Seq = int64(len(history)) + 1
	msg.SentAt = time.Now().UTC()
	m.messages[msg.RequestID] = append(history, msg)
	return msg, nil
}

func (m *Memory) ListVenueMessages(_ context.Context, requestID string, limit int) ([]model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.messages[requestID]
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > len(history) {
		limit = len(history)
	}

	out := make([]model.ChatMessage, limit)
	copy(out, history[len(history)-limit:])
	return out, nil
}

func (m *Memory) CreateContact(_ context.Context, c model.ContactMessage) (model.ContactMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = uuid.NewString()
	c.Status = "new"
	c.CreatedAt = time.Now().UTC()
	m.contacts = append(m.contacts, c)
	return c, nil
}

// Contacts returns a copy of the stored contact submissions.
func (m *Memory) Contacts() []model.ContactMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ContactMessage, len(m.contacts))
	copy(out, m.contacts)
	return out
}
