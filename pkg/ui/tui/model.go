package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"igharvest/pkg/events"
)

// Controller is the part of a download job the TUI drives
type Controller interface {
	Pause() bool
	Resume() bool
	Stop()
	SubmitCode(code string) bool
}

// Phase is what the job is doing, as far as the TUI knows
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhasePaused
	PhaseAwaitingCode
	PhaseStopping
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "STARTING"
	case PhaseRunning:
		return "RUNNING"
	case PhasePaused:
		return "PAUSED"
	case PhaseAwaitingCode:
		return "WAITING FOR CODE"
	case PhaseStopping:
		return "STOPPING"
	default:
		return "DONE"
	}
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   events.Level
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of one download job
type Model struct {
	job    Controller
	target string

	spinner     spinner.Model
	overallBar  progress.Model
	currentBar  progress.Model
	codeInput   textinput.Model
	phase       Phase
	outcome     string
	outcomeKind events.State

	completed    int
	total        int
	current      int
	currentTotal int
	files        int
	recentFiles  []string
	sessionPath  string

	startTime      time.Time
	now            func() time.Time
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int
	maxRecentFiles int
}

// NewModel creates the model for a job downloading target
func NewModel(job Controller, target string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(pink)

	in := textinput.New()
	in.Placeholder = "123456"
	in.CharLimit = 8
	in.Width = 10
	in.Cursor.SetMode(cursor.CursorStatic)

	return &Model{
		job:            job,
		target:         target,
		spinner:        s,
		overallBar:     progress.New(progress.WithGradient(string(purple), string(orange))),
		currentBar:     progress.New(progress.WithSolidFill(string(pink))),
		codeInput:      in,
		phase:          PhaseStarting,
		startTime:      time.Now(),
		now:            time.Now,
		maxLogMessages: 50,
		maxRecentFiles: 5,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Phase returns the current phase
func (m *Model) Phase() Phase {
	return m.phase
}

func (m *Model) addLog(level events.Level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) addFile(path string) {
	m.files++
	m.recentFiles = append(m.recentFiles, path)
	if len(m.recentFiles) > m.maxRecentFiles {
		m.recentFiles = m.recentFiles[len(m.recentFiles)-m.maxRecentFiles:]
	}
}

// rate returns completed items per minute
func (m *Model) rate() float64 {
	elapsed := m.now().Sub(m.startTime)
	if elapsed < time.Second {
		return 0
	}
	return float64(m.completed) / elapsed.Minutes()
}

// eta estimates the time left from the average time per completed item
func (m *Model) eta() time.Duration {
	if m.completed == 0 || m.total <= m.completed {
		return 0
	}
	perItem := m.now().Sub(m.startTime) / time.Duration(m.completed)
	return perItem * time.Duration(m.total-m.completed)
}
