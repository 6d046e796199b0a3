package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const logo = `
╦╔═╗╦ ╦╔═╗╦═╗╦  ╦╔═╗╔═╗╔╦╗
║║ ╦╠═╣╠═╣╠╦╝╚╗╔╝║╣ ╚═╗ ║ 
╩╚═╝╩ ╩╩ ╩╩╚═ ╚╝ ╚═╝╚═╝ ╩ `

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{logoStyle.Width(m.width).Render(logo)}

	if m.phase == PhaseAwaitingCode {
		sections = append(sections, m.renderPrompt())
	}

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatusPanel(width),
		m.renderFilesPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.renderLogsPanel(width)))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("p pause/resume • s stop • q quit • ? help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderPrompt() string {
	return promptStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		warnStyle.Render("Two-factor authentication required"),
		"Enter the code sent to your device:",
		m.codeInput.View(),
		helpStyle.Render("enter submit • esc cancel login"),
	))
}

func (m *Model) renderStatusPanel(width int) string {
	title := titleStyle.Render(" " + strings.ToUpper(m.target) + " ")

	status := phaseStyle(m.phase).Render(m.phase.String())
	if m.phase == PhaseRunning || m.phase == PhaseStarting {
		status = m.spinner.View() + " " + status
	}

	overall := 0.0
	if m.total > 0 {
		overall = float64(m.completed) / float64(m.total)
	}
	current := 0.0
	if m.currentTotal > 0 {
		current = float64(m.current) / float64(m.currentTotal)
	}

	lines := []string{
		status,
		"",
		stat("Overall", fmt.Sprintf("%d/%d", m.completed, m.total)),
		m.overallBar.ViewAs(overall),
		stat("Current item", fmt.Sprintf("%.0f%%", current*100)),
		m.currentBar.ViewAs(current),
		"",
		stat("Elapsed", formatDuration(m.now().Sub(m.startTime))),
		stat("Rate", fmt.Sprintf("%.1f items/min", m.rate())),
		stat("ETA", formatDuration(m.eta())),
		stat("Files", fmt.Sprintf("%d", m.files)),
	}

	if m.outcome != "" {
		lines = append(lines, "", outcomeStyle(m.outcomeKind).Render(m.outcome))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

func (m *Model) renderFilesPanel(width int) string {
	title := titleStyle.Render(" RECENT FILES ")

	if len(m.recentFiles) == 0 {
		content := mutedStyle.Render("No files yet")
		return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
	}

	items := make([]string, 0, len(m.recentFiles))
	for _, path := range m.recentFiles {
		items = append(items, fileStyle.Render("✓ "+filepath.Base(path)))
	}
	if m.sessionPath != "" {
		items = append(items, "", fileStyle.Render("session: "+m.sessionPath))
	}
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(items, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 12
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := mutedStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		msg := log.Message
		if r := []rune(msg); maxMsgLen > 3 && len(r) > maxMsgLen {
			msg = string(r[:maxMsgLen-3]) + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, msg))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = mutedStyle.Render("No logs yet...")
	}

	logsHeight := m.height - 12
	if logsHeight < 5 {
		logsHeight = 5
	}
	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    p/space  - Pause or resume the download
    s        - Stop the download
    q        - Stop, or quit once finished
    ctrl+l   - Clear the log
    ?        - Toggle this help

  Two-factor prompt:
    enter    - Submit the code
    esc      - Cancel the login
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration as a clock
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
