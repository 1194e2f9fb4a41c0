package apiclient

import "sync"

// Latest guards view state against stale responses. Each request takes a
// token from Issue; only the response holding the most recent token is
// applied.
type Latest struct {
	mu      sync.Mutex
	current uint64
}

// Issue returns a new token that supersedes every earlier one.
func (l *Latest) Issue() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current++
	return l.current
}

func (l *Latest) IsLatest(token uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return token == l.current
}

// Apply runs fn if token is still the latest and reports whether it ran.
// No newer token can be issued while fn runs.
func (l *Latest) Apply(token uint64, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != l.current {
		return false
	}
	fn()
	return true
}
