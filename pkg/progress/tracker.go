// Package progress keeps the overall and current-item counters of a job.
package progress

import (
	"sync"

	"igharvest/pkg/events"
)

// Category is an independently enabled kind of content
type Category string

const (
	Posts          Category = "posts"
	Stories        Category = "stories"
	Highlights     Category = "highlights"
	ProfilePicture Category = "profile_picture"
	Saved          Category = "saved"
	Single         Category = "single"
)

// DefaultEstimate is used when a category's size cannot be known up front
const DefaultEstimate = 100

// Reporter receives progress updates
type Reporter interface {
	Progress(current, total int, scope events.Scope)
}

// Tracker holds completed items against per-category estimates. Estimates
// only grow, so the overall total never shrinks below what is completed.
type Tracker struct {
	mu        sync.Mutex
	estimates map[Category]int
	completed int
	reporter  Reporter
}

// NewTracker creates a tracker reporting to r (may be nil)
func NewTracker(r Reporter) *Tracker {
	return &Tracker{
		estimates: make(map[Category]int),
		reporter:  r,
	}
}

// Precompute seeds category estimates and emits the initial (0, total).
// Negative estimates are treated as unknown and replaced by DefaultEstimate.
func (t *Tracker) Precompute(estimates map[Category]int) int {
	t.mu.Lock()
	for cat, n := range estimates {
		if n < 0 {
			n = DefaultEstimate
		}
		t.setLocked(cat, n)
	}
	total := t.totalLocked()
	completed := t.completed
	t.mu.Unlock()

	t.report(completed, total, events.ScopeOverall)
	return total
}

// Revise raises a category estimate. Lower values are ignored.
func (t *Tracker) Revise(cat Category, n int) bool {
	t.mu.Lock()
	cur, ok := t.estimates[cat]
	if ok && n <= cur {
		t.mu.Unlock()
		return false
	}
	t.setLocked(cat, n)
	total := t.totalLocked()
	completed := t.completed
	t.mu.Unlock()

	t.report(completed, total, events.ScopeOverall)
	return true
}

func (t *Tracker) setLocked(cat Category, n int) {
	if cur := t.estimates[cat]; n < cur {
		return
	}
	t.estimates[cat] = n
}

func (t *Tracker) totalLocked() int {
	total := 0
	for _, n := range t.estimates {
		total += n
	}
	if total < t.completed {
		total = t.completed
	}
	if total < 1 {
		total = 1
	}
	return total
}

// Estimate returns the current estimate of one category
func (t *Tracker) Estimate(cat Category) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimates[cat]
}

// Advance adds n completed items, clamped to the total, and emits the
// overall progress.
func (t *Tracker) Advance(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	total := t.totalLocked()
	t.completed += n
	if t.completed > total {
		t.completed = total
	}
	completed := t.completed
	t.mu.Unlock()

	t.report(completed, total, events.ScopeOverall)
}

// SetCurrent emits current-item progress, independent of the overall counters
func (t *Tracker) SetCurrent(current, total int) {
	if total <= 0 {
		total = 1
	}
	if current > total {
		current = total
	}
	if current < 0 {
		current = 0
	}
	t.report(current, total, events.ScopeCurrent)
}

// Finish marks the run complete and emits (total, total)
func (t *Tracker) Finish() {
	t.mu.Lock()
	total := t.totalLocked()
	t.completed = total
	t.mu.Unlock()

	t.report(total, total, events.ScopeOverall)
}

// Completed returns the completed count
func (t *Tracker) Completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Total returns the overall denominator, always >= 1
func (t *Tracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

// Snapshot returns completed and total together
func (t *Tracker) Snapshot() (completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.totalLocked()
}

func (t *Tracker) report(current, total int, scope events.Scope) {
	if t.reporter != nil {
		t.reporter.Progress(current, total, scope)
	}
}
