// Package notify is the toast channel between the stores and whatever UI
// embeds them. Stores emit success and failure alerts here instead of
// returning presentation text to callers.
package notify

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks Notifier

import "log/slog"

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

// Alert is the (kind, title, message) tuple handed to the UI layer.
type Alert struct {
	Variant Variant
	Title   string
	Message string
}

// Notifier receives alerts. Implementations must not block the calling store.
type Notifier interface {
	ShowAlert(alert Alert)
}

// Success builds a success alert with the conventional title.
func Success(message string) Alert {
	return Alert{Variant: VariantSuccess, Title: "Success", Message: message}
}

// Failure builds an error alert with the conventional title.
func Failure(message string) Alert {
	return Alert{Variant: VariantError, Title: "Error", Message: message}
}

// LogNotifier writes alerts to the structured log. Used by the CLI, where
// there is no toast surface.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ShowAlert(alert Alert) {
	if alert.Variant == VariantError {
		n.logger.Error(alert.Message, "title", alert.Title)
		return
	}
	n.logger.Info(alert.Message, "title", alert.Title)
}

// Feed buffers alerts on a channel for a UI event loop to drain. When the
// buffer is full the alert is dropped; a stalled UI must not wedge a store
// mid-mutation.
type Feed struct {
	ch chan Alert
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 16
	}
	return &Feed{ch: make(chan Alert, buffer)}
}

func (f *Feed) ShowAlert(alert Alert) {
	select {
	case f.ch <- alert:
	default:
	}
}

// Alerts exposes the drain side of the feed.
func (f *Feed) Alerts() <-chan Alert {
	return f.ch
}
