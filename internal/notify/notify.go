package notify

import (
	"fmt"

	"github.com/hochfrequenz/gamecraft-orchestrator/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title     string
	Message   string
	Type      NotificationType
	RunID     string // Optional run reference
	VideoPath string // Optional produced video path
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// ForRun builds the notification describing a finished run.
func ForRun(rec *domain.RunRecord) Notification {
	n := Notification{
		RunID:     rec.ID,
		VideoPath: rec.VideoPath,
	}

	image := rec.Request.SourceImage
	tag := rec.Request.Actions.Tag()

	switch rec.Status {
	case domain.RunCompleted:
		n.Type = NotifySuccess
		n.Title = "Run completed"
		n.Message = fmt.Sprintf("%s %s finished in %ds (waited %ds)",
			image, tag, int(rec.Duration().Seconds()), rec.WaitSeconds)
	case domain.RunTimedOut:
		n.Type = NotifyWarning
		n.Title = "Run timed out"
		n.Message = fmt.Sprintf("%s %s produced no video within %ds", image, tag, rec.WaitSeconds)
	default:
		n.Type = NotifyError
		n.Title = "Run failed"
		n.Message = fmt.Sprintf("%s %s did not launch", image, tag)
	}
	return n
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }
