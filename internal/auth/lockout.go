package auth

import (
	"errors"
	"sync"
)

// ErrLocked is returned once an identity has exhausted its login attempts.
var ErrLocked = errors.New("account locked after too many failed attempts")

// Lockout is the caller-level retry policy: three consecutive login
// failures lock the identity until a successful PIN recovery clears it.
// It lives outside the ledger core and guards nothing but login itself.
type Lockout struct {
	mu       sync.Mutex
	failures map[string]int
	max      int
}

// NewLockout caps consecutive failures at max; max <= 0 defaults to 3.
func NewLockout(max int) *Lockout {
	if max <= 0 {
		max = 3
	}
	return &Lockout{failures: make(map[string]int), max: max}
}

// Allowed reports whether the identity may attempt a login.
func (l *Lockout) Allowed(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[email] < l.max
}

// RecordFailure counts one failed attempt and reports whether the identity
// is now locked.
func (l *Lockout) RecordFailure(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[email]++
	return l.failures[email] >= l.max
}

// Clear resets the counter after a successful login or PIN recovery.
func (l *Lockout) Clear(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, email)
}
