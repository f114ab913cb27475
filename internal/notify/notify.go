// Package notify delivers desktop notifications for the local session.
// Delivery goes through the org.freedesktop.Notifications D-Bus service
// when a session bus is reachable, and falls back to the notify-send binary
// otherwise. Capability is probed at call time, never cached, so a
// notification daemon appearing or vanishing mid-session is picked up on
// the next delivery.
package notify

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no local delivery mechanism exists.
var ErrUnavailable = errors.New("no local notification channel available")

// Notification is one reminder to display.
type Notification struct {
	Title string
	Body  string
	Icon  string
	// Tag groups deliveries: a second notification with the same tag
	// replaces the one already on screen instead of stacking.
	Tag string
	// RequireInteraction keeps the notification visible until the user
	// dismisses it.
	RequireInteraction bool
}

// Notifier delivers a single notification. Implementations do not retry;
// the caller's next tick re-evaluates and retries naturally.
type Notifier interface {
	Deliver(ctx context.Context, n Notification) error
}

// ProbeFunc selects a delivery mechanism, or fails with ErrUnavailable.
type ProbeFunc func(ctx context.Context) (Notifier, error)

// Probe returns the best available local channel: the session notification
// daemon first, notify-send second.
func Probe(ctx context.Context) (Notifier, error) {
	if n, err := newBusNotifier(); err == nil {
		return n, nil
	}
	if n, err := newExecNotifier(); err == nil {
		return n, nil
	}
	return nil, ErrUnavailable
}
