package tui

import (
	"github.com/charmbracelet/lipgloss"

	"igharvest/pkg/events"
)

// Palette follows the Instagram gradient, purple through orange.
var (
	purple = lipgloss.Color("#833AB4")
	pink   = lipgloss.Color("#E1306C")
	orange = lipgloss.Color("#F77737")
	yellow = lipgloss.Color("#FCAF45")
	green  = lipgloss.Color("#3DDC84")
	red    = lipgloss.Color("#ED4956")
	ink    = lipgloss.Color("#121212")
	panel  = lipgloss.Color("#1E1E1E")
	muted  = lipgloss.Color("#8E8E8E")
	text   = lipgloss.Color("#DBDBDB")
)

var (
	baseStyle = lipgloss.NewStyle().Background(ink).Foreground(text)

	logoStyle = lipgloss.NewStyle().
			Foreground(pink).
			Bold(true).
			Align(lipgloss.Center).
			Padding(1, 0)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Background(panel).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(ink).
			Background(pink).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(yellow).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().Foreground(orange).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(text).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	fileStyle  = mutedStyle.PaddingLeft(1)
	helpStyle  = mutedStyle.Padding(1, 0, 0, 2)

	goodStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(yellow).Bold(true)
	badStyle  = lipgloss.NewStyle().Foreground(red).Bold(true)
)

// stat renders one "label value" row of the status panel
func stat(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func phaseStyle(p Phase) lipgloss.Style {
	switch p {
	case PhaseRunning:
		return goodStyle
	case PhasePaused, PhaseAwaitingCode, PhaseStopping:
		return warnStyle
	default:
		return valueStyle
	}
}

func outcomeStyle(s events.State) lipgloss.Style {
	switch s {
	case events.StateError:
		return badStyle
	case events.StateStopped:
		return warnStyle
	default:
		return goodStyle
	}
}

func levelColor(l events.Level) lipgloss.Color {
	switch l {
	case events.LevelError:
		return red
	case events.LevelWarning:
		return yellow
	case events.LevelInfo:
		return purple
	default:
		return muted
	}
}
