// Package notify is a typed publish/subscribe bus for application-wide
// notifications such as a banned account or a toast message.
package notify

import (
	"sort"
	"sync"
	"time"
)

// Topic delivers values of one type to its subscribers. Publish is
// synchronous: every subscriber has run when it returns.
type Topic[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.subs == nil {
		t.subs = make(map[uint64]func(T))
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Publish calls every subscriber in subscription order.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	ids := make([]uint64, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, t.subs[id])
	}
	t.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribers returns the number of registered subscribers.
func (t *Topic[T]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// UserBanned is published when the server reports the account as banned.
type UserBanned struct {
	Message   string
	BanReason string
	BannedAt  *time.Time
}

// VerificationRequired is published when the server requires the account to
// be verified before the request can proceed.
type VerificationRequired struct {
	Message string
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a transient user-facing notification.
type Toast struct {
	Level   Level
	Message string
}

// Bus groups the application topics.
type Bus struct {
	UserBanned           Topic[UserBanned]
	VerificationRequired Topic[VerificationRequired]
	Toasts               Topic[Toast]
}

func NewBus() *Bus {
	return &Bus{}
}

// Success publishes a success toast.
func (b *Bus) Success(msg string) {
	b.Toasts.Publish(Toast{Level: LevelSuccess, Message: msg})
}

// Error publishes an error toast.
func (b *Bus) Error(msg string) {
	b.Toasts.Publish(Toast{Level: LevelError, Message: msg})
}

// Info publishes an info toast.
func (b *Bus) Info(msg string) {
	b.Toasts.Publish(Toast{Level: LevelInfo, Message: msg})
}
