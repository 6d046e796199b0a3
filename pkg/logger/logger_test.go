package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igharvest/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "chatty"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, zerolog.DebugLevel)

	child := base.WithField("job_id", "abc").WithFields(map[string]interface{}{
		"phase": "posts",
		"count": 4,
	})
	child.InfoWithFields("chained", map[string]interface{}{"wait": 2 * time.Second})

	out := buf.String()
	assert.Contains(t, out, `"job_id":"abc"`)
	assert.Contains(t, out, `"phase":"posts"`)
	assert.Contains(t, out, `"count":4`)
	assert.Contains(t, out, `"app":"igharvest"`)

	buf.Reset()
	base.Info("parent untouched")
	assert.NotContains(t, buf.String(), "job_id")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("socket closed")).Error("download failed")
	assert.Contains(t, buf.String(), "socket closed")
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "error"}))
	assert.NotNil(t, GetLogger())

	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	Info("global info")
	WithField("k", "v").Warn("global warn")
	assert.True(t, tl.HasMessage("global info"))
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("target", "nasa").WithError(errors.New("boom"))

	child.Error("child error")
	tl.Info("root info")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "nasa", msgs[0].Fields["target"])
	assert.EqualError(t, msgs[0].Error, "boom")
	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessageContaining("root"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogDownload(tl, "nasa", "123", "post", false, nil)
	LogDownload(tl, "nasa", "124", "post", true, nil)
	LogDownload(tl, "nasa", "125", "post", false, errors.New("404"))
	LogRateLimit(tl, "/feed", time.Minute, 2)
	LogJobState(tl, "job-1", "paused", "by user")
	LogPhaseSummary(tl, "posts", 3, 1, 1)

	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.True(t, tl.HasMessage("Job state changed"))
	assert.True(t, tl.HasMessage("Phase finished"))
}
