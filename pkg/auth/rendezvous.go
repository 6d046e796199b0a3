package auth

import (
	"context"
	"sync"
	"time"

	igerrors "igharvest/pkg/errors"
)

// DefaultTwoFactorTimeout bounds the wait for a verification code
const DefaultTwoFactorTimeout = 120 * time.Second

// Rendezvous hands one verification code from the UI goroutine to the
// worker blocked in Await. Each challenge accepts exactly one submission;
// anything submitted before Arm or after delivery is dropped.
type Rendezvous struct {
	Timeout time.Duration

	mu        sync.Mutex
	slot      chan string
	armed     bool
	delivered bool
}

// NewRendezvous creates a rendezvous with the given timeout, or the default when zero
func NewRendezvous(timeout time.Duration) *Rendezvous {
	if timeout <= 0 {
		timeout = DefaultTwoFactorTimeout
	}
	return &Rendezvous{Timeout: timeout}
}

// Arm opens the slot for a new challenge
func (r *Rendezvous) Arm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slot = make(chan string, 1)
	r.armed = true
	r.delivered = false
}

// Pending reports whether a challenge is waiting for a code
func (r *Rendezvous) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed && !r.delivered
}

// Submit delivers code to the waiting worker. It returns false when no
// challenge is pending or a code was already accepted.
func (r *Rendezvous) Submit(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.armed || r.delivered {
		return false
	}
	r.delivered = true
	r.slot <- code
	return true
}

// Await blocks until a code is submitted, the timeout passes or ctx ends.
// An empty code cancels the challenge. The slot is disarmed on return.
func (r *Rendezvous) Await(ctx context.Context) (string, error) {
	r.mu.Lock()
	slot := r.slot
	timeout := r.Timeout
	r.mu.Unlock()
	defer r.disarm()

	if slot == nil {
		return "", igerrors.New(igerrors.KindTwoFactorCancelled, "no two-factor challenge armed")
	}
	if timeout <= 0 {
		timeout = DefaultTwoFactorTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case code := <-slot:
		if code == "" {
			return "", igerrors.New(igerrors.KindTwoFactorCancelled, "two-factor authentication cancelled")
		}
		return code, nil
	case <-timer.C:
		return "", igerrors.New(igerrors.KindTwoFactorTimeout, "no verification code within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Rendezvous) disarm() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = false
}
