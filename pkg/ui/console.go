package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"igharvest/pkg/events"
)

// ConsoleOptions tune what Console prints
type ConsoleOptions struct {
	// Quiet hides INFO messages and the progress line
	Quiet bool
	// Verbose prints every downloaded file
	Verbose bool
	// Interactive redraws the progress line in place
	Interactive bool
}

// Console is an events.Observer that writes to a terminal or log stream
type Console struct {
	out  io.Writer
	opts ConsoleOptions

	mu        sync.Mutex
	start     time.Time
	current   int
	total     int
	files     int
	errors    int
	lineShown bool
	now       func() time.Time
}

// NewConsole creates a console observer writing to out
func NewConsole(out io.Writer, opts ConsoleOptions) *Console {
	return &Console{out: out, opts: opts, now: time.Now, start: time.Now()}
}

func (c *Console) Log(msg string, level events.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch level {
	case events.LevelError:
		c.errors++
		c.println(Red("✗ " + msg))
	case events.LevelWarning:
		c.println(Yellow("⚠ " + msg))
	default:
		if !c.opts.Quiet {
			c.println(msg)
		}
	}
}

func (c *Console) Progress(current, total int, scope events.Scope) {
	if scope != events.ScopeOverall {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current, c.total = current, total
	if c.opts.Interactive && !c.opts.Quiet {
		c.drawLine()
	}
}

func (c *Console) FileDownloaded(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files++
	if c.opts.Verbose {
		c.println(Green("✓ ") + path)
	}
}

func (c *Console) StateChanged(state events.State, details string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch state {
	case events.StateStarted:
		c.start = c.now()
	case events.StatePaused, events.StateResumed:
		c.println(Magenta("» " + details))
	}
}

func (c *Console) TwoFactorRequired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(Cyan("Two-factor code required"))
}

func (c *Console) SessionSaved(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.Verbose {
		c.println(Dim("session: " + path))
	}
}

func (c *Console) Finished() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lineShown {
		fmt.Fprintln(c.out)
		c.lineShown = false
	}
	elapsed := c.now().Sub(c.start)
	fmt.Fprintf(c.out, "%s %d files in %s (%.1f files/min)\n",
		Green("✓"), c.files, FormatDuration(elapsed), perMinute(c.files, elapsed))
	if c.errors > 0 {
		fmt.Fprintf(c.out, "  %s %d errors\n", Dim("•"), c.errors)
	}
}

// println writes a full line, keeping the progress line below it
func (c *Console) println(line string) {
	if c.lineShown {
		fmt.Fprintf(c.out, "\r%s\r", strings.Repeat(" ", 100))
	}
	fmt.Fprintln(c.out, line)
	if c.lineShown {
		c.drawLine()
	}
}

func (c *Console) drawLine() {
	elapsed := c.now().Sub(c.start)
	line := fmt.Sprintf("%s %d/%d • %.1f/min • %s",
		Bar(c.current, c.total, 20), c.current, c.total, perMinute(c.current, elapsed), eta(c.current, c.total, elapsed))
	fmt.Fprintf(c.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
	c.lineShown = true
}

// Bar renders a fixed-width progress bar
func Bar(current, total, width int) string {
	filled := 0
	if total > 0 {
		filled = current * width / total
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("━", filled) + strings.Repeat("─", width-filled) + "]"
}

func perMinute(n int, elapsed time.Duration) float64 {
	if elapsed < time.Second {
		return 0
	}
	return float64(n) / elapsed.Minutes()
}

func eta(current, total int, elapsed time.Duration) string {
	if current == 0 || elapsed <= 0 {
		return "calculating..."
	}
	remaining := total - current
	if remaining <= 0 {
		return "done"
	}
	perItem := elapsed / time.Duration(current)
	return FormatDuration(perItem * time.Duration(remaining))
}
