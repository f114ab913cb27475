package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"driply/internal/model"
	"driply/internal/notify"
)

// ReminderIcon is shipped with the web client and understood by desktop
// notification daemons that resolve theme icons by name.
const ReminderIcon = "cute-cat-water"

// Snapshot is the state one tick evaluates against. It is read fresh from
// the stores on every tick so mid-session edits are visible immediately.
type Snapshot struct {
	Prefs          model.Preferences
	LastDrinkAt    time.Time // zero when nothing logged today
	TotalTodayMl   int
	LastNotifiedAt time.Time // zero when never notified on this channel
}

// SnapshotFunc loads the current state. An error skips the tick entirely:
// the decision function is never run against partial state.
type SnapshotFunc func(ctx context.Context) (Snapshot, error)

// MarkNotifiedFunc persists the channel's last-notified time.
type MarkNotifiedFunc func(ctx context.Context, at time.Time) error

// Controller owns the local-session reminder loop: one Ticker whose ticks
// evaluate Decide against a fresh snapshot and, on fire, deliver a desktop
// notification and then record the delivery time.
type Controller struct {
	ticker       *Ticker
	snapshot     SnapshotFunc
	probe        notify.ProbeFunc
	markNotified MarkNotifiedFunc
	logger       *slog.Logger

	mu      sync.Mutex
	enabled bool
}

// NewController wires a controller. tickPeriod <= 0 selects the default.
func NewController(tickPeriod time.Duration, snapshot SnapshotFunc, probe notify.ProbeFunc, markNotified MarkNotifiedFunc, logger *slog.Logger) *Controller {
	if probe == nil {
		probe = notify.Probe
	}
	return &Controller{
		ticker:       NewTicker(tickPeriod),
		snapshot:     snapshot,
		probe:        probe,
		markNotified: markNotified,
		logger:       logger,
	}
}

// SetEnabled transitions the loop. Enabling probes the delivery channel
// first so a missing notification daemon surfaces right here, at toggle
// time, and leaves the loop stopped; the engine does not poll for the
// channel to come back. Disabling stops the ticker and waits for any
// in-flight tick to finish. Both directions are idempotent.
func (c *Controller) SetEnabled(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enabled == c.enabled {
		return nil
	}

	if !enabled {
		c.ticker.Stop()
		c.enabled = false
		c.logger.Info("local reminders stopped")
		return nil
	}

	if _, err := c.probe(ctx); err != nil {
		return fmt.Errorf("local delivery unavailable: %w", err)
	}

	c.ticker.Start(context.Background(), c.tick)
	c.enabled = true
	c.logger.Info("local reminders started", "period", c.ticker.period)
	return nil
}

// Enabled reports whether the loop is running.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Close stops the loop. No tick runs after Close returns.
func (c *Controller) Close() {
	c.SetEnabled(context.Background(), false)
}

func (c *Controller) tick(now time.Time) {
	ctx := context.Background()

	snap, err := c.snapshot(ctx)
	if err != nil {
		c.logger.Warn("snapshot unavailable, skipping tick", "error", err)
		return
	}

	d := Decide(now, snap.Prefs, snap.LastDrinkAt, snap.TotalTodayMl, snap.LastNotifiedAt)
	if !d.Fire() {
		c.logger.Debug("reminder suppressed", "reason", d.Reason)
		return
	}

	notifier, err := c.probe(ctx)
	if err != nil {
		c.logger.Warn("reminder dropped, no delivery channel", "error", err)
		return
	}

	if err := notifier.Deliver(ctx, buildNotification(snap)); err != nil {
		// last-notified is not advanced, so the next tick retries.
		c.logger.Error("deliver reminder", "error", err)
		return
	}

	if err := c.markNotified(ctx, now); err != nil {
		c.logger.Error("record local notification time", "error", err)
	}
}

func buildNotification(snap Snapshot) notify.Notification {
	remaining := snap.Prefs.DailyGoalMl - snap.TotalTodayMl
	body := "Stay hydrated!"
	if remaining > 0 {
		body = fmt.Sprintf("Stay hydrated! You need %dml more today.", remaining)
	}
	return notify.Notification{
		Title:              "Time to drink water 💧",
		Body:               body,
		Icon:               ReminderIcon,
		Tag:                "water-reminder",
		RequireInteraction: true,
	}
}
