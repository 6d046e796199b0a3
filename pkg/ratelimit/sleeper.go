package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is the granularity at which sleeps observe stop and pause
const DefaultPollInterval = 500 * time.Millisecond

// Gate blocks callers while closed. The zero value is open.
type Gate struct {
	mu     sync.Mutex
	closed chan struct{}
}

// Close makes subsequent Wait calls block until Open
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed == nil {
		g.closed = make(chan struct{})
	}
}

// Open releases every waiter
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed != nil {
		close(g.closed)
		g.closed = nil
	}
}

// IsClosed reports whether the gate currently blocks
func (g *Gate) IsClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed != nil
}

// Wait returns once the gate is open, or ctx's error if ctx ends first
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ch := g.closed
		g.mu.Unlock()

		if ch == nil {
			return ctx.Err()
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sleeper performs waits that end early on cancellation and do not
// accrue time while the gate is closed.
type Sleeper struct {
	PollInterval time.Duration
	Gate         *Gate
}

// NewSleeper creates a sleeper polling at DefaultPollInterval
func NewSleeper(gate *Gate) *Sleeper {
	return &Sleeper{PollInterval: DefaultPollInterval, Gate: gate}
}

// Sleep waits d of unpaused time. It returns ctx.Err() within one poll
// interval of ctx being cancelled.
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	poll := s.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	remaining := d
	for remaining > 0 {
		step := poll
		if remaining < step {
			step = remaining
		}

		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if s.Gate == nil || !s.Gate.IsClosed() {
			remaining -= step
		}
	}
	return ctx.Err()
}
