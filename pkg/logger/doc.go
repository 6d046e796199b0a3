// Package logger provides the structured logging interface used across igharvest.
//
// It wraps zerolog with a small interface supporting fields, error
// attachment and a process-wide global instance:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("job_id", id)
//	log.InfoWithFields("Phase finished", map[string]interface{}{"downloaded": 12})
//
// Console output uses four-letter coloured level labels. When a log file is
// configured, JSON lines are written to it alongside the console.
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
