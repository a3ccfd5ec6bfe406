// Package resilience protects the daemon from repeatedly relaunching
// language servers that crash on startup.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a breaker is open and rejecting launches.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker tracks consecutive launch failures for a single language server.
// After maxFailures consecutive failures the circuit opens and launches are
// rejected until the timeout elapses, at which point one probe is allowed.
type Breaker struct {
	mu          sync.Mutex
	state       state
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and stays open for the given timeout.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Execute runs fn if the circuit is closed or half-open.
// Returns ErrCircuitOpen if the circuit is open.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) >= b.timeout {
			b.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		return true
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.state = stateClosed
}

// Group manages one breaker per key so each language server trips
// independently. Keys are typically "worktree|server".
type Group struct {
	mu          sync.Mutex
	breakers    map[string]*Breaker
	maxFailures int
	timeout     time.Duration
}

// NewGroup creates a breaker group with shared settings for all keys.
func NewGroup(maxFailures int, timeout time.Duration) *Group {
	return &Group{
		breakers:    make(map[string]*Breaker),
		maxFailures: maxFailures,
		timeout:     timeout,
	}
}

// Execute runs fn under the breaker for key, creating it on first use.
func (g *Group) Execute(key string, fn func() error) error {
	g.mu.Lock()
	b, ok := g.breakers[key]
	if !ok {
		b = NewBreaker(g.maxFailures, g.timeout)
		g.breakers[key] = b
	}
	g.mu.Unlock()

	return b.Execute(fn)
}

// Reset discards the breaker for key, clearing its failure history.
func (g *Group) Reset(key string) {
	g.mu.Lock()
	delete(g.breakers, key)
	g.mu.Unlock()
}
