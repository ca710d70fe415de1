package comm

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/hupe1980/deskagent/logging"
)

// Urgency classifies how pressing a notification is.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyCritical Urgency = "critical"
)

const notifyTimeout = 5 * time.Second

// NotifierOptions configure a Notifier.
type NotifierOptions struct {
	// AppName is shown as the notification's application name.
	AppName string
	Logger  logging.Logger
}

// Notifier sends desktop notifications through the OS native mechanism:
// notify-send on Linux, osascript on macOS, msg on Windows. In a headless
// environment it falls back to logging so callers never fail.
type Notifier struct {
	appName string
	logger  logging.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(optFns ...func(o *NotifierOptions)) *Notifier {
	opts := NotifierOptions{
		AppName: "DeskAgent",
		Logger:  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Notifier{
		appName: opts.AppName,
		logger:  opts.Logger,
	}
}

// Notify sends a desktop notification. It reports whether one was actually
// dispatched, false meaning the logging fallback was used.
func (n *Notifier) Notify(ctx context.Context, title, message string, urgency Urgency) bool {
	if urgency == "" {
		urgency = UrgencyNormal
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			cmd := exec.CommandContext(ctx, "notify-send",
				"--app-name", n.appName, fmt.Sprintf("--urgency=%s", urgency), title, message)
			if err := cmd.Run(); err == nil {
				return true
			}
		}
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q subtitle %q", message, title, n.appName)
		if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err == nil {
			return true
		}
	case "windows":
		// msg * needs a local session; best effort only.
		if err := exec.CommandContext(ctx, "msg", "*", fmt.Sprintf("%s: %s", title, message)).Run(); err == nil {
			return true
		}
	}

	if urgency == UrgencyCritical {
		n.logger.Warn("notify.fallback", "title", title, "message", message)
	} else {
		n.logger.Info("notify.fallback", "title", title, "message", message)
	}

	return false
}
