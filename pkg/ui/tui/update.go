package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"igharvest/pkg/events"
)

// LogMsg is a job log line
type LogMsg struct {
	Level   events.Level
	Message string
}

// ProgressMsg is a job progress update
type ProgressMsg struct {
	Current int
	Total   int
	Scope   events.Scope
}

// FileMsg reports a file written by the job
type FileMsg struct {
	Path string
}

// StateMsg is a job state transition
type StateMsg struct {
	State   events.State
	Details string
}

// TwoFactorMsg asks for a verification code
type TwoFactorMsg struct{}

// SessionSavedMsg reports where the session was written
type SessionSavedMsg struct {
	Path string
}

// FinishedMsg is sent once when the job has ended
type FinishedMsg struct{}

type codeResultMsg struct {
	code     string
	accepted bool
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.overallBar.Width = max(10, msg.Width/2-12)
		m.currentBar.Width = max(10, msg.Width/2-12)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.phase == PhaseDone {
			return m, nil
		}
		return m, tickCmd()

	case LogMsg:
		m.addLog(msg.Level, msg.Message)
		return m, nil

	case ProgressMsg:
		if msg.Scope == events.ScopeCurrent {
			m.current, m.currentTotal = msg.Current, msg.Total
		} else {
			m.completed, m.total = msg.Current, msg.Total
		}
		return m, nil

	case FileMsg:
		m.addFile(msg.Path)
		return m, nil

	case StateMsg:
		return m, m.applyState(msg)

	case TwoFactorMsg:
		m.phase = PhaseAwaitingCode
		m.codeInput.Reset()
		return m, m.codeInput.Focus()

	case codeResultMsg:
		switch {
		case !msg.accepted:
			m.addLog(events.LevelWarning, "No verification code was pending")
		case msg.code != "":
			m.addLog(events.LevelInfo, "Verification code submitted")
		}
		if m.phase == PhaseAwaitingCode {
			m.phase = PhaseRunning
		}
		return m, nil

	case SessionSavedMsg:
		m.sessionPath = msg.Path
		return m, nil

	case FinishedMsg:
		m.phase = PhaseDone
		m.codeInput.Blur()
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyState(msg StateMsg) tea.Cmd {
	switch msg.State {
	case events.StateStarted, events.StateResumed:
		if msg.State == events.StateStarted {
			m.startTime = m.now()
		}
		m.phase = PhaseRunning
	case events.StatePaused:
		m.phase = PhasePaused
	case events.StateAwaitingTwoFactor:
		m.phase = PhaseAwaitingCode
	case events.StateCompleted, events.StateStopped, events.StateError:
		m.outcome = msg.Details
		m.outcomeKind = msg.State
		m.phase = PhaseDone
	}
	return nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.stop()
	}

	if m.phase == PhaseAwaitingCode {
		switch msg.Type {
		case tea.KeyEnter:
			code := m.codeInput.Value()
			if code == "" {
				return m, nil
			}
			m.codeInput.Blur()
			return m, m.submit(code)
		case tea.KeyEsc:
			m.codeInput.Blur()
			m.addLog(events.LevelWarning, "Two-factor login cancelled")
			return m, m.submit("")
		}
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "Q":
		if m.phase == PhaseDone {
			return m, tea.Quit
		}
		return m, m.stop()

	case "s", "S":
		return m, m.stop()

	case "p", "P", " ":
		job := m.job
		switch m.phase {
		case PhaseRunning:
			return m, func() tea.Msg { job.Pause(); return nil }
		case PhasePaused:
			return m, func() tea.Msg { job.Resume(); return nil }
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// Job calls run as commands: the job reports back through the observer,
// which needs the event loop free.

// stop asks the job to stop; the program quits once FinishedMsg arrives
func (m *Model) stop() tea.Cmd {
	if m.phase == PhaseDone {
		return tea.Quit
	}
	if m.phase == PhaseStopping {
		return nil
	}
	m.phase = PhaseStopping
	job := m.job
	return func() tea.Msg {
		job.Stop()
		return nil
	}
}

func (m *Model) submit(code string) tea.Cmd {
	job := m.job
	return func() tea.Msg {
		return codeResultMsg{code: code, accepted: job.SubmitCode(code)}
	}
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
