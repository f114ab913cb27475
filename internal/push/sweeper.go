package push

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"driply/internal/model"
	"driply/internal/reminder"
	"driply/internal/store"
)

// Sender abstracts Service.Send for the sweeper.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// Sweeper re-evaluates the reminder decision for every registered push
// subscription on a wall-clock-aligned once-per-minute schedule, so users
// keep getting reminded with every client closed. Remote push cannot be
// more responsive than a minute anyway, so the sweep runs far coarser than
// the local tick loop.
type Sweeper struct {
	sender Sender
	subs   *store.SubscriptionStore
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(sender Sender, subs *store.SubscriptionStore, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		sender: sender,
		subs:   subs,
		logger: logger,
	}
}

// Start schedules the sweep at the top of every minute. Idempotent.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc("* * * * *", func() { s.Sweep(time.Now()) }); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("push sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
// Idempotent.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("push sweeper stopped")
}

// Sweep runs one full pass over the registry. Per-record failures are
// logged and skipped; nothing aborts the remaining records, and the
// schedule keeps running across failed sweeps indefinitely.
func (s *Sweeper) Sweep(now time.Time) {
	subs, err := s.subs.List()
	if err != nil {
		s.logger.Error("list subscriptions", "error", err)
		return
	}

	for i := range subs {
		s.evaluate(now, &subs[i])
	}
}

func (s *Sweeper) evaluate(now time.Time, sub *model.PushSubscription) {
	d := reminder.DecideServer(now, sub.Preferences, sub.LastNotifiedAt)
	if !d.Fire() {
		s.logger.Debug("push suppressed", "endpoint", sub.Endpoint, "reason", d.Reason)
		return
	}

	payload := Payload{
		Title: "Time to drink water 💧",
		Body:  fmt.Sprintf("It's been %d minutes. Stay hydrated!", sub.Preferences.IntervalMinutes),
		Icon:  "/cute-cat-water.png",
		Tag:   "water-reminder",
	}

	if err := s.sender.Send(sub, payload); err != nil {
		if errors.Is(err, ErrExpired) {
			if derr := s.subs.DeleteByEndpoint(sub.Endpoint); derr != nil {
				s.logger.Error("prune dead subscription", "endpoint", sub.Endpoint, "error", derr)
				return
			}
			s.logger.Info("pruned dead subscription", "endpoint", sub.Endpoint)
			return
		}
		// Transient failure: last_notified_at stays put, so the next
		// sweep retries naturally.
		s.logger.Error("send push reminder", "endpoint", sub.Endpoint, "error", err)
		return
	}

	if err := s.subs.SetLastNotified(sub.Endpoint, now); err != nil {
		s.logger.Error("record push notification time", "endpoint", sub.Endpoint, "error", err)
	}
}
