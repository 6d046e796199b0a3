package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"igharvest/pkg/config"
	"igharvest/pkg/events"
)

const appName = "igharvest"

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name", appName, title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	esc := func(s string) string { return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s) }
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("%s").Show($toast)
	`, esc(title), esc(message), appName)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// PlatformSender returns the sender for the current OS, or nil when the
// platform has none
func PlatformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier is an events.Observer that raises desktop notifications for the
// job outcomes enabled in the config. Send errors are ignored.
type Notifier struct {
	events.Nop

	sender NotificationSender
	prefs  config.NotificationConfig
	target string

	mu          sync.Mutex
	files       int
	rateLimited bool
}

// NewNotifier creates a Notifier for a job on target. A nil sender uses the
// platform sender.
func NewNotifier(sender NotificationSender, prefs config.NotificationConfig, target string) *Notifier {
	if sender == nil {
		sender = PlatformSender()
	}
	return &Notifier{sender: sender, prefs: prefs, target: target}
}

func (n *Notifier) FileDownloaded(string) {
	n.mu.Lock()
	n.files++
	n.mu.Unlock()
}

func (n *Notifier) Log(msg string, level events.Level) {
	if level != events.LevelWarning || !n.prefs.OnRateLimit {
		return
	}
	if !strings.Contains(strings.ToLower(msg), "rate limit") {
		return
	}
	n.mu.Lock()
	first := !n.rateLimited
	n.rateLimited = true
	n.mu.Unlock()
	if first {
		n.send("Rate limited", msg)
	}
}

func (n *Notifier) StateChanged(state events.State, details string) {
	switch state {
	case events.StateCompleted:
		if n.prefs.OnComplete {
			n.mu.Lock()
			files := n.files
			n.mu.Unlock()
			n.send("Download complete", fmt.Sprintf("%s: %d files downloaded", n.target, files))
		}
	case events.StateError:
		if n.prefs.OnError {
			n.send("Download failed", fmt.Sprintf("%s: %s", n.target, details))
		}
	case events.StateAwaitingTwoFactor:
		n.send("Two-factor code required", "Enter the code sent to your device")
	}
}

func (n *Notifier) send(title, message string) {
	if !n.prefs.Enabled || n.sender == nil {
		return
	}
	_ = n.sender.Send(appName+": "+title, message)
}
