package events

import (
	"fmt"

	"igharvest/pkg/logger"
)

// Emitter sends user-facing notifications to an observer and mirrors
// them into the structured log.
type Emitter struct {
	obs Observer
	log logger.Logger
}

// NewEmitter creates an emitter; nil arguments are replaced by no-ops.
func NewEmitter(obs Observer, log logger.Logger) *Emitter {
	if obs == nil {
		obs = Nop{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Emitter{obs: obs, log: log}
}

// WithLogger returns an emitter sharing the observer with a different logger
func (e *Emitter) WithLogger(log logger.Logger) *Emitter {
	return &Emitter{obs: e.obs, log: log}
}

// Logger returns the structured logger
func (e *Emitter) Logger() logger.Logger {
	return e.log
}

func (e *Emitter) Infof(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.log.Info(msg)
	e.obs.Log(msg, LevelInfo)
}

func (e *Emitter) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.log.Warn(msg)
	e.obs.Log(msg, LevelWarning)
}

func (e *Emitter) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.log.Error(msg)
	e.obs.Log(msg, LevelError)
}

// Progress implements the progress.Reporter interface
func (e *Emitter) Progress(current, total int, scope Scope) {
	e.obs.Progress(current, total, scope)
}

func (e *Emitter) FileDownloaded(path string) {
	e.log.DebugWithFields("File written", map[string]interface{}{"path": path})
	e.obs.FileDownloaded(path)
}

func (e *Emitter) StateChanged(state State, details string) {
	e.log.InfoWithFields("State changed", map[string]interface{}{
		"state":   string(state),
		"details": details,
	})
	e.obs.StateChanged(state, details)
}

func (e *Emitter) TwoFactorRequired() {
	e.log.Info("Two-factor authentication required")
	e.obs.TwoFactorRequired()
}

func (e *Emitter) SessionSaved(path string) {
	e.log.InfoWithFields("Session saved", map[string]interface{}{"path": path})
	e.obs.SessionSaved(path)
}

func (e *Emitter) Finished() {
	e.obs.Finished()
}
