package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// commandRunner runs a notification command; replaced in tests
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService sends desktop notifications about downloads and
// provisioning. It also serves as the provisioner's failure reporter.
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
		err = n.run("osascript", "-e", script)
	case "notify-send":
		err = n.run("notify-send", title, message)
	case "log":
		n.logger.Info("Notification", zap.String("title", title), zap.String("message", message))
		return nil
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyDownloadQueued sends notification when a download is queued
func (n *NotificationService) NotifyDownloadQueued(d *domain.Download) {
	n.Send("Download Queued", fmt.Sprintf("Added to queue: %s (%s)", truncateString(d.URL, 40), d.Mode))
}

// NotifyDownloadStarted sends notification when a download starts
func (n *NotificationService) NotifyDownloadStarted(d *domain.Download) {
	n.Send("Download Started", fmt.Sprintf("Downloading: %s (%s)", truncateString(d.URL, 40), d.Mode))
}

// NotifyDownloadCompleted sends notification when a download completes
func (n *NotificationService) NotifyDownloadCompleted(d *domain.Download) {
	name := d.FileName
	if name == "" {
		name = truncateString(d.URL, 40)
	}
	n.Send("Download Completed", "Saved: "+name)
}

// NotifyDownloadFailed sends notification when a download fails
func (n *NotificationService) NotifyDownloadFailed(d *domain.Download, err error) {
	n.Send("Download Failed", fmt.Sprintf("%s: %s", truncateString(d.URL, 40), truncateString(err.Error(), 80)))
}

// ReportProvisionFailure tells the user a required binary could not be set up
func (n *NotificationService) ReportProvisionFailure(binary string, err error) {
	n.Send("Binary Download Failed", fmt.Sprintf("%s: %s", binary, truncateString(err.Error(), 80)))
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
