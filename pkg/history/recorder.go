package history

import (
	"sync"
	"time"

	"igharvest/pkg/events"
	"igharvest/pkg/logger"
)

// Recorder is an events.Observer that keeps a Run up to date. Write
// failures are logged and never reach the job.
type Recorder struct {
	events.Nop

	store  *Store
	logger logger.Logger

	mu  sync.Mutex
	run *Run
}

// NewRecorder inserts run as running and returns its observer
func NewRecorder(store *Store, run *Run, log logger.Logger) (*Recorder, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = StatusRunning
	if err := store.Create(run); err != nil {
		return nil, err
	}
	return &Recorder{store: store, logger: log.WithField("run_id", run.ID), run: run}, nil
}

// Run returns a copy of the current record
func (r *Recorder) Run() Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.run
}

func (r *Recorder) FileDownloaded(string) {
	r.mu.Lock()
	r.run.Files++
	r.mu.Unlock()
}

func (r *Recorder) Log(msg string, level events.Level) {
	if level != events.LevelError {
		return
	}
	r.mu.Lock()
	r.run.Message = msg
	r.mu.Unlock()
}

func (r *Recorder) StateChanged(state events.State, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch state {
	case events.StatePaused:
		r.run.Status = StatusPaused
	case events.StateResumed, events.StateStarted:
		r.run.Status = StatusRunning
	case events.StateCompleted:
		r.run.Status = StatusCompleted
	case events.StateStopped:
		r.run.Status = StatusStopped
	case events.StateError:
		r.run.Status = StatusFailed
		r.run.Message = details
	default:
		return
	}
	r.save()
}

func (r *Recorder) Finished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.run.FinishedAt = &now
	r.save()
}

// SetRoot records the download directory once the job knows it
func (r *Recorder) SetRoot(root string) {
	r.mu.Lock()
	r.run.Root = root
	r.mu.Unlock()
}

// SetCounts stores the final counters of the job
func (r *Recorder) SetCounts(downloaded, skipped, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run.Downloaded, r.run.Skipped, r.run.Failed = downloaded, skipped, failed
	r.save()
}

// save must be called with mu held
func (r *Recorder) save() {
	if err := r.store.Update(r.run); err != nil {
		r.logger.WithError(err).Warn("failed to update job history")
	}
}
