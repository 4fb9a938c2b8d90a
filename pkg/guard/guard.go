// Package guard provides short-lived mutual exclusion keyed by string, used to
// keep one user from having two transfers in flight at once.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// LockTimeout bounds how long a crashed holder can keep a key.
	LockTimeout = 30 * time.Second

	// LockKeyPrefix namespaces lock keys.
	LockKeyPrefix = "lock:submit:"
)

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("lock already held")

// Local is an in-process guard.
type Local struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocal() *Local {
	return &Local{held: make(map[string]time.Time), now: time.Now}
}

func (l *Local) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, ErrHeld
	}
	exp := now.Add(LockTimeout)
	l.held[key] = exp
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			// a holder that outlived LockTimeout must not free its successor
			if l.held[key] == exp {
				delete(l.held, key)
			}
			l.mu.Unlock()
		})
	}, nil
}
