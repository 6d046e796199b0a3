package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	igerrors "igharvest/pkg/errors"
)

// OpKind is the kind of network write being scheduled
type OpKind string

const (
	OpPost      OpKind = "post"
	OpStory     OpKind = "story"
	OpHighlight OpKind = "highlight"
	OpSaved     OpKind = "saved"
)

// PauseMode selects how often a long session pause may be drawn
type PauseMode int

const (
	// PostMode draws every 5th item
	PostMode PauseMode = iota
	// SavedMode draws every 10th item
	SavedMode
)

// Policy holds the anti-detection timing parameters
type Policy struct {
	BaseDelay         time.Duration
	Jitter            time.Duration
	StoryMultiplier   float64
	CriticalWait      time.Duration
	LongSessionChance float64
	LongPauseMin      time.Duration
	LongPauseMax      time.Duration
}

// DefaultPolicy mirrors the conservative defaults of the desktop tool
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:         8 * time.Second,
		Jitter:            3 * time.Second,
		StoryMultiplier:   2.5,
		CriticalWait:      30 * time.Minute,
		LongSessionChance: 0.25,
		LongPauseMin:      20 * time.Second,
		LongPauseMax:      30 * time.Second,
	}
}

// Scheduler computes delays from a Policy. It performs no I/O.
type Scheduler struct {
	policy Policy

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduler creates a scheduler; a nil rng gets a time-seeded source.
func NewScheduler(policy Policy, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{policy: policy, rng: rng}
}

// Policy returns the scheduler's timing policy
func (s *Scheduler) Policy() Policy {
	return s.policy
}

func (s *Scheduler) uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	f := s.rng.Float64()
	s.mu.Unlock()
	return lo + time.Duration(f*float64(hi-lo))
}

func (s *Scheduler) bernoulli(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

// InterItemDelay is the wait before downloading the next item
func (s *Scheduler) InterItemDelay(kind OpKind) time.Duration {
	p := s.policy
	switch kind {
	case OpStory, OpHighlight:
		base := time.Duration(float64(p.BaseDelay) * p.StoryMultiplier)
		return base + s.uniform(time.Second, 3*time.Second)
	default:
		return p.BaseDelay + s.uniform(0, p.Jitter)
	}
}

// LongPause draws the occasional extra idle period. index is the 0-based
// count of items already processed; the draw happens on every 5th (PostMode)
// or 10th (SavedMode) item.
func (s *Scheduler) LongPause(index int, mode PauseMode) (time.Duration, bool) {
	every := 5
	if mode == SavedMode {
		every = 10
	}
	if (index+1)%every != 0 {
		return 0, false
	}
	if !s.bernoulli(s.policy.LongSessionChance) {
		return 0, false
	}
	return s.uniform(s.policy.LongPauseMin, s.policy.LongPauseMax), true
}

// RetryBackoff is the wait after a failed attempt (1-based). ok is false
// when the error kind is not retried at all.
func (s *Scheduler) RetryBackoff(kind igerrors.Kind, attempt int) (time.Duration, bool) {
	switch kind {
	case igerrors.KindConnection:
		return s.policy.BaseDelay * time.Duration(attempt*2), true
	case igerrors.KindRateLimited:
		return s.policy.CriticalWait * 2, true
	default:
		return 0, false
	}
}
