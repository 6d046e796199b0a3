// Package events defines the notifications a download job emits to its
// observers (console, TUI, history store).
package events

import "sync"

// Level is the severity of a user-facing log event
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Scope selects the progress stream
type Scope string

const (
	ScopeOverall Scope = "overall"
	ScopeCurrent Scope = "current"
)

// State names a job state transition
type State string

const (
	StateStarted           State = "started"
	StateAwaitingTwoFactor State = "awaiting_2fa"
	StatePaused            State = "paused"
	StateResumed           State = "resumed"
	StateStopped           State = "stopped"
	StateCompleted         State = "completed"
	StateError             State = "error"
)

// Observer receives job notifications. Most calls come from the job's
// worker goroutine; pause, resume and stop notifications come from the
// caller of those methods. Implementations must not block for long.
type Observer interface {
	Log(msg string, level Level)
	Progress(current, total int, scope Scope)
	FileDownloaded(path string)
	StateChanged(state State, details string)
	TwoFactorRequired()
	SessionSaved(path string)
	Finished()
}

// Nop implements Observer with no-ops; embed it to implement a subset.
type Nop struct{}

func (Nop) Log(string, Level)          {}
func (Nop) Progress(int, int, Scope)   {}
func (Nop) FileDownloaded(string)      {}
func (Nop) StateChanged(State, string) {}
func (Nop) TwoFactorRequired()         {}
func (Nop) SessionSaved(string)        {}
func (Nop) Finished()                  {}

// Multi fans notifications out to several observers in order
type Multi []Observer

func (m Multi) Log(msg string, level Level) {
	for _, o := range m {
		o.Log(msg, level)
	}
}

func (m Multi) Progress(current, total int, scope Scope) {
	for _, o := range m {
		o.Progress(current, total, scope)
	}
}

func (m Multi) FileDownloaded(path string) {
	for _, o := range m {
		o.FileDownloaded(path)
	}
}

func (m Multi) StateChanged(state State, details string) {
	for _, o := range m {
		o.StateChanged(state, details)
	}
}

func (m Multi) TwoFactorRequired() {
	for _, o := range m {
		o.TwoFactorRequired()
	}
}

func (m Multi) SessionSaved(path string) {
	for _, o := range m {
		o.SessionSaved(path)
	}
}

func (m Multi) Finished() {
	for _, o := range m {
		o.Finished()
	}
}

// ProgressEvent is a recorded Progress call
type ProgressEvent struct {
	Current int
	Total   int
	Scope   Scope
}

// LogEvent is a recorded Log call
type LogEvent struct {
	Message string
	Level   Level
}

// StateEvent is a recorded StateChanged call
type StateEvent struct {
	State   State
	Details string
}

// Recorder keeps every notification in memory. It is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	logs       []LogEvent
	progresses []ProgressEvent
	files      []string
	states     []StateEvent
	twoFactor  int
	sessions   []string
	finishes   int

	finished chan struct{}
	once     sync.Once
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{finished: make(chan struct{})}
}

func (r *Recorder) Log(msg string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, LogEvent{Message: msg, Level: level})
}

func (r *Recorder) Progress(current, total int, scope Scope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progresses = append(r.progresses, ProgressEvent{Current: current, Total: total, Scope: scope})
}

func (r *Recorder) FileDownloaded(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, path)
}

func (r *Recorder) StateChanged(state State, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, StateEvent{State: state, Details: details})
}

func (r *Recorder) TwoFactorRequired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.twoFactor++
}

func (r *Recorder) SessionSaved(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, path)
}

func (r *Recorder) Finished() {
	r.mu.Lock()
	r.finishes++
	r.mu.Unlock()
	r.once.Do(func() { close(r.finished) })
}

// Done is closed on the first Finished call
func (r *Recorder) Done() <-chan struct{} {
	return r.finished
}

// Logs returns a copy of the recorded log events
func (r *Recorder) Logs() []LogEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogEvent(nil), r.logs...)
}

// LogsAt returns the recorded messages of one level
func (r *Recorder) LogsAt(level Level) []string {
	var out []string
	for _, l := range r.Logs() {
		if l.Level == level {
			out = append(out, l.Message)
		}
	}
	return out
}

// ProgressFor returns the recorded progress events of one scope
func (r *Recorder) ProgressFor(scope Scope) []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProgressEvent
	for _, p := range r.progresses {
		if p.Scope == scope {
			out = append(out, p)
		}
	}
	return out
}

// Files returns the reported downloaded paths
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// States returns the recorded state changes
func (r *Recorder) States() []StateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StateEvent(nil), r.states...)
}

// HasState reports whether state was recorded
func (r *Recorder) HasState(state State) bool {
	for _, s := range r.States() {
		if s.State == state {
			return true
		}
	}
	return false
}

// TwoFactorCount is the number of TwoFactorRequired calls
func (r *Recorder) TwoFactorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.twoFactor
}

// Sessions returns the reported session paths
func (r *Recorder) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sessions...)
}

// FinishCount is the number of Finished calls
func (r *Recorder) FinishCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishes
}
