package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"igharvest/pkg/events"
)

// TUI runs the terminal interface for one job and observes its events
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a TUI driving job. Pass it to the job as an observer, then
// call Run.
func NewTUI(job Controller, target string, opts ...tea.ProgramOption) *TUI {
	model := NewModel(job, target)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Bind sets the job after construction, for callers that need the TUI as
// an observer before the job exists. It must be called before Run.
func (t *TUI) Bind(job Controller) {
	t.model.job = job
}

// Run blocks until the job has finished or the user quits
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Quit stops the program
func (t *TUI) Quit() {
	t.program.Quit()
}

func (t *TUI) Log(msg string, level events.Level) {
	t.program.Send(LogMsg{Level: level, Message: msg})
}

func (t *TUI) Progress(current, total int, scope events.Scope) {
	t.program.Send(ProgressMsg{Current: current, Total: total, Scope: scope})
}

func (t *TUI) FileDownloaded(path string) {
	t.program.Send(FileMsg{Path: path})
}

func (t *TUI) StateChanged(state events.State, details string) {
	t.program.Send(StateMsg{State: state, Details: details})
}

func (t *TUI) TwoFactorRequired() {
	t.program.Send(TwoFactorMsg{})
}

func (t *TUI) SessionSaved(path string) {
	t.program.Send(SessionSavedMsg{Path: path})
}

func (t *TUI) Finished() {
	t.program.Send(FinishedMsg{})
}
