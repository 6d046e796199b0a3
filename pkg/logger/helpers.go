package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogDownload logs the outcome of a single item download
func LogDownload(l Logger, target, itemID, kind string, skipped bool, err error) {
	fields := map[string]interface{}{
		"target":  target,
		"item_id": itemID,
		"kind":    kind,
		"skipped": skipped,
	}

	switch {
	case err != nil:
		l.WithError(err).ErrorWithFields("Download failed", fields)
	case skipped:
		l.DebugWithFields("Download skipped, file exists", fields)
	default:
		l.InfoWithFields("Download completed", fields)
	}
}

// LogRateLimit logs a rate limit back-off
func LogRateLimit(l Logger, endpoint string, wait time.Duration, attempt int) {
	l.WarnWithFields("Rate limit reached, backing off", map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"attempt":  attempt,
		"action":   "rate_limited",
	})
}

// LogJobState logs a job state transition
func LogJobState(l Logger, jobID, state, details string) {
	l.InfoWithFields("Job state changed", map[string]interface{}{
		"job_id":  jobID,
		"state":   state,
		"details": details,
	})
}

// LogPhaseSummary logs the counters of a finished download phase
func LogPhaseSummary(l Logger, phase string, downloaded, skipped, failed int) {
	l.InfoWithFields("Phase finished", map[string]interface{}{
		"phase":      phase,
		"downloaded": downloaded,
		"skipped":    skipped,
		"failed":     failed,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
