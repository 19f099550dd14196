// Package notify delivers screening and position events to operators over
// Telegram and Discord. Events are dispatched to all configured senders
// and can be filtered by event type.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Event types used for filtering.
const (
	EventMotionAlert    = "motion_alert"
	EventDeepAlert      = "deep_alert"
	EventPositionOpen   = "position_open"
	EventPositionClosed = "position_closed"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns the channel identifier, e.g. "telegram".
	Name() string
}

// Notifier fans notifications out to all senders. When an allow list of
// event types is configured, Notify drops events outside it.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *log.Logger
}

// NotifierOptions configures a Notifier.
type NotifierOptions struct {
	// Senders receive every delivered notification. May be empty, in
	// which case the notifier is a no-op.
	Senders []Sender

	// Events is the allow list of event types. Empty allows everything.
	Events []string

	// Logger for delivery failures. Defaults to log.Default().
	Logger *log.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(opts NotifierOptions) *Notifier {
	allowed := make(map[string]bool, len(opts.Events))
	for _, e := range opts.Events {
		allowed[strings.TrimSpace(e)] = true
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{
		senders: opts.Senders,
		events:  allowed,
		logger:  logger,
	}
}

// Notify delivers to all senders if the event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every channel; one failing channel does not block the
// others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Printf("[notify] %s delivery failed: %v", s.Name(), err)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
