// Package notification delivers trading signal alerts to external channels
// (Telegram, webhooks) or the log for dry runs.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ronadasakalesha/RSI-Divergence-Bot/internal/divergence"
)

// Alert is a formatted, ready-to-deliver signal notification.
type Alert struct {
	Title string           // plain text headline
	Body  string           // plain text detail lines
	Event divergence.Event // the underlying signal
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails. A delivery
	// failure never rolls back the signal that produced the alert.
	Send(ctx context.Context, alert Alert) error
}

// MultiNotifier fans an alert out to several backends. Every backend is
// attempted even when an earlier one fails; failures are joined.
type MultiNotifier struct {
	backends []Notifier
}

// NewMultiNotifier creates a notifier delivering to all given backends.
func NewMultiNotifier(backends ...Notifier) *MultiNotifier {
	return &MultiNotifier{backends: backends}
}

func (n *MultiNotifier) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, b := range n.backends {
		if err := b.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier logs alerts instead of delivering them (dry-run mode).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("dry-run alert",
		slog.String("kind", string(alert.Event.Kind)),
		slog.String("title", alert.Title),
		slog.String("body", alert.Body),
	)
	return nil
}
