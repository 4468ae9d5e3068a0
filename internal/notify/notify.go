// Package notify delivers maintenance events to chat channels. Adapters exist
// for Slack and Discord; a Fanout combines several of them behind the same
// interface.
package notify

import "context"

// Notifier posts formatted events to one destination.
type Notifier interface {
	Send(ctx context.Context, evt Event) error
	Close() error
}

// Event is a platform-neutral notification.
type Event struct {
	Title    string
	Body     string
	Severity string // success, info, warning, error
	Fields   []Field
}

// Field is a short labeled value rendered beside the event body.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// Fanout sends each event to every notifier, collecting the first error.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout builds a Fanout over the given notifiers.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// Send delivers the event to all notifiers. Delivery continues past failures
// so one dead channel does not silence the others.
func (f *Fanout) Send(ctx context.Context, evt Event) error {
	var firstErr error
	for _, n := range f.notifiers {
		if err := n.Send(ctx, evt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all notifiers, collecting the first error.
func (f *Fanout) Close() error {
	var firstErr error
	for _, n := range f.notifiers {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
