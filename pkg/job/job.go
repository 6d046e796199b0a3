// Package job runs one download from authentication to the last content
// phase on a single worker goroutine, with pause, resume and stop available
// from any goroutine.
package job

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"igharvest/pkg/auth"
	igerrors "igharvest/pkg/errors"
	"igharvest/pkg/events"
	"igharvest/pkg/fetch"
	"igharvest/pkg/logger"
	"igharvest/pkg/progress"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/retry"
	"igharvest/pkg/storage"
)

// State is a job lifecycle state
type State string

const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateAwaitingCode State = "awaiting_2fa"
	StatePaused       State = "paused"
	StateCompleted    State = "completed"
	StateStopped      State = "stopped"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateFailed
}

// Platform is everything a job needs from the Instagram client
type Platform interface {
	fetch.Platform
	auth.Platform
}

// Deps are the collaborators of a job. Only Platform is required.
type Deps struct {
	Platform Platform
	// ID replaces the generated job identifier
	ID string
	// Files defaults to the platform's storage manager when it exposes one
	Files    *storage.Manager
	Observer events.Observer
	Logger   logger.Logger
	// Store backs the stored-account auth mode and Remember
	Store *auth.Manager

	// Sleep replaces the pause-aware sleeper; tests use it to skip delays
	Sleep            retry.SleepFunc
	PollInterval     time.Duration
	TwoFactorTimeout time.Duration
	Rand             *rand.Rand
}

// Result is what a job produced
type Result struct {
	fetch.Summary
	Username    string
	Root        string
	SessionPath string
}

// Job is one download run. Create it with New, then Start it once.
type Job struct {
	id         string
	cfg        Config
	platform   Platform
	files      *storage.Manager
	store      *auth.Manager
	scheduler  *ratelimit.Scheduler
	sleep      retry.SleepFunc
	gate       *ratelimit.Gate
	rendezvous *auth.Rendezvous
	emit       *events.Emitter
	tracker    *progress.Tracker
	logger     logger.Logger

	mu      sync.Mutex
	state   State
	stopped bool
	cancel  context.CancelFunc
	result  Result
	err     error

	done       chan struct{}
	finishOnce sync.Once
}

// New validates cfg and prepares a job in the idle state
func New(cfg Config, deps Deps) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Platform == nil {
		return nil, errors.New("a platform client is required")
	}

	id := deps.ID
	if id == "" {
		id = uuid.NewString()
	}
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("job_id", id)

	files := deps.Files
	if files == nil {
		if fp, ok := deps.Platform.(interface{ Files() *storage.Manager }); ok {
			files = fp.Files()
		} else {
			files = storage.NewManager()
		}
	}

	gate := &ratelimit.Gate{}
	sleep := deps.Sleep
	if sleep == nil {
		s := ratelimit.NewSleeper(gate)
		if deps.PollInterval > 0 {
			s.PollInterval = deps.PollInterval
		}
		sleep = s.Sleep
	}

	emit := events.NewEmitter(deps.Observer, log)
	return &Job{
		id:         id,
		cfg:        cfg,
		platform:   deps.Platform,
		files:      files,
		store:      deps.Store,
		scheduler:  ratelimit.NewScheduler(cfg.Timing, deps.Rand),
		sleep:      sleep,
		gate:       gate,
		rendezvous: auth.NewRendezvous(deps.TwoFactorTimeout),
		emit:       emit,
		tracker:    progress.NewTracker(emit),
		logger:     log,
		state:      StateIdle,
		cancel:     func() {},
		done:       make(chan struct{}),
	}, nil
}

// ID is the job's unique identifier
func (j *Job) ID() string {
	return j.id
}

// Config returns the job's configuration
func (j *Job) Config() Config {
	return j.cfg
}

// Start moves an idle job to running and spawns the worker. It returns
// immediately.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.state != StateIdle {
		state := j.state
		j.mu.Unlock()
		return fmt.Errorf("job %s cannot start from state %s", j.id, state)
	}
	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.state = StateRunning
	j.mu.Unlock()

	logger.LogJobState(j.logger, j.id, string(StateRunning), "worker started")
	j.emit.StateChanged(events.StateStarted, "Download started")
	go j.run(ctx)
	return nil
}

// Pause holds the worker at its next suspension point. Only a running job
// can be paused.
func (j *Job) Pause() bool {
	j.mu.Lock()
	if j.state != StateRunning {
		j.mu.Unlock()
		return false
	}
	j.state = StatePaused
	j.gate.Close()
	j.mu.Unlock()

	logger.LogJobState(j.logger, j.id, string(StatePaused), "")
	j.emit.StateChanged(events.StatePaused, "Download paused")
	return true
}

// Resume releases a paused job
func (j *Job) Resume() bool {
	j.mu.Lock()
	if j.state != StatePaused {
		j.mu.Unlock()
		return false
	}
	j.state = StateRunning
	j.gate.Open()
	j.mu.Unlock()

	logger.LogJobState(j.logger, j.id, string(StateRunning), "resumed")
	j.emit.StateChanged(events.StateResumed, "Download resumed")
	return true
}

// Stop ends the job from any state. Blocked waits are released and the
// worker exits before its next network call. Repeated calls do nothing.
func (j *Job) Stop() {
	j.mu.Lock()
	if j.stopped || j.state.Terminal() {
		j.mu.Unlock()
		return
	}
	j.stopped = true
	prev := j.state
	j.state = StateStopped
	j.gate.Open()
	cancel := j.cancel
	j.mu.Unlock()

	j.emit.Infof("Stopping download...")
	cancel()
	if prev == StateIdle {
		j.finish(StateStopped, nil)
	}
}

// SubmitCode delivers a two-factor code to a pending challenge. An empty
// code cancels the login. It returns false when no challenge is waiting.
func (j *Job) SubmitCode(code string) bool {
	return j.rendezvous.Submit(code)
}

// State returns the current state
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Done is closed after Finished has been emitted
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job ends and returns its failure, if any
func (j *Job) Wait() error {
	<-j.done
	return j.Err()
}

// Err is the error that failed the job; nil for completed or stopped jobs
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Result returns the counters so far
func (j *Job) Result() Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Progress returns the overall completed and total counts
func (j *Job) Progress() (completed, total int) {
	return j.tracker.Snapshot()
}

func (j *Job) run(ctx context.Context) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			j.logger.ErrorWithFields("job worker panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			})
			err = fmt.Errorf("unexpected failure: %v", r)
		}
		j.complete(ctx, err)
	}()
	err = j.execute(ctx)
}

func (j *Job) complete(ctx context.Context, err error) {
	j.mu.Lock()
	final := StateCompleted
	switch {
	case j.stopped || ctx.Err() != nil || errors.Is(err, context.Canceled):
		final = StateStopped
		j.stopped = true
	case err != nil:
		final = StateFailed
		j.err = err
	}
	j.state = final
	cancel := j.cancel
	j.mu.Unlock()

	cancel()
	j.finish(final, err)
}

// finish emits the terminal notifications. It runs once per job.
func (j *Job) finish(final State, err error) {
	j.finishOnce.Do(func() {
		details := ""
		switch final {
		case StateStopped:
			details = "Download stopped by user"
			j.emit.Warnf("%s", details)
			j.emit.StateChanged(events.StateStopped, details)
		case StateFailed:
			details = describe(err)
			j.emit.Errorf("%s", details)
			j.emit.StateChanged(events.StateError, details)
		case StateCompleted:
			details = "Download completed"
			j.tracker.Finish()
			j.emit.StateChanged(events.StateCompleted, details)
		}
		logger.LogJobState(j.logger, j.id, string(final), details)

		j.emit.Finished()
		close(j.done)
	})
}

func (j *Job) setState(from, to State) {
	j.mu.Lock()
	if j.state == from {
		j.state = to
	}
	j.mu.Unlock()
}

func (j *Job) addSummary(s fetch.Summary) {
	j.mu.Lock()
	j.result.Found += s.Found
	j.result.Downloaded += s.Downloaded
	j.result.Skipped += s.Skipped
	j.result.Failed += s.Failed
	j.result.Aborted += s.Aborted
	j.mu.Unlock()
}

// checkpoint blocks while paused and reports cancellation
func (j *Job) checkpoint(ctx context.Context) error {
	if err := j.gate.Wait(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// describe turns a job failure into the message shown to the user
func describe(err error) string {
	if err == nil {
		return "Download failed"
	}
	switch igerrors.KindOf(err) {
	case igerrors.KindBadCredentials:
		return fmt.Sprintf("Bad credentials: %v", err)
	case igerrors.KindTwoFactorTimeout:
		return "Two-factor authentication failed: no code received before the timeout"
	case igerrors.KindTwoFactorCancelled:
		return "Two-factor authentication cancelled: no code provided"
	case igerrors.KindSessionNotFound:
		return fmt.Sprintf("Could not load session: %v", err)
	case igerrors.KindRateLimited:
		return fmt.Sprintf("Rate limited by Instagram: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
