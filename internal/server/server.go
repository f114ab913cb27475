package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"driply/internal/handler"
	"driply/internal/middleware"
	"driply/internal/model"
	"driply/internal/notify"
	"driply/internal/push"
	"driply/internal/reminder"
	"driply/internal/store"
)

// Server wires the stores, the reminder engine's two delivery loops, and
// the HTTP surface.
type Server struct {
	db         *sql.DB
	prefStore  *store.PreferenceStore
	subStore   *store.SubscriptionStore
	controller *reminder.Controller
	sweeper    *push.Sweeper

	settingsH *handler.SettingsHandler
	intakeH   *handler.IntakeHandler
	pushH     *handler.PushHandler

	logger *slog.Logger
}

func New(db *sql.DB, pushCfg push.Config, logger *slog.Logger) *Server {
	prefStore := store.NewPreferenceStore(db)
	intakeStore := store.NewIntakeStore(db)
	subStore := store.NewSubscriptionStore(db)

	pushSvc := push.NewService(pushCfg.VAPIDPublicKey, pushCfg.VAPIDPrivateKey)
	sweeper := push.NewSweeper(pushSvc, subStore, logger.With("component", "sweeper"))

	snapshot := func(ctx context.Context) (reminder.Snapshot, error) {
		prefs, err := prefStore.Get()
		if err != nil {
			return reminder.Snapshot{}, err
		}
		day := model.DayKey(time.Now())
		total, err := intakeStore.TotalForDay(day)
		if err != nil {
			return reminder.Snapshot{}, err
		}
		last, err := intakeStore.LastForDay(day)
		if err != nil {
			return reminder.Snapshot{}, err
		}
		lastNotified, err := prefStore.LastNotified()
		if err != nil {
			return reminder.Snapshot{}, err
		}

		snap := reminder.Snapshot{
			Prefs:          prefs,
			TotalTodayMl:   total,
			LastNotifiedAt: lastNotified,
		}
		if last != nil {
			snap.LastDrinkAt = last.OccurredAt
		}
		return snap, nil
	}

	controller := reminder.NewController(
		reminder.DefaultTickPeriod,
		snapshot,
		notify.Probe,
		func(ctx context.Context, at time.Time) error { return prefStore.SetLastNotified(at) },
		logger.With("component", "controller"),
	)

	limiter := middleware.NewRateLimiter()

	return &Server{
		db:         db,
		prefStore:  prefStore,
		subStore:   subStore,
		controller: controller,
		sweeper:    sweeper,
		settingsH:  handler.NewSettingsHandler(prefStore, controller, logger.With("component", "settings")),
		intakeH:    handler.NewIntakeHandler(intakeStore, prefStore, logger.With("component", "intake")),
		pushH:      handler.NewPushHandler(subStore, pushSvc, limiter, logger.With("component", "push_handler")),
		logger:     logger,
	}
}

// Start brings up the background loops: the push sweeper always, the local
// reminder loop when the stored preferences have notifications on. A
// missing local channel at boot is logged, not fatal; remote push still
// covers the user.
func (s *Server) Start(ctx context.Context) error {
	if err := s.sweeper.Start(); err != nil {
		return err
	}

	prefs, err := s.prefStore.Get()
	if err != nil {
		return err
	}
	if prefs.NotificationsEnabled {
		if err := s.controller.SetEnabled(ctx, true); err != nil {
			s.logger.Warn("local reminders unavailable", "error", err)
		}
	}
	return nil
}

// Stop halts both loops. In-flight deliveries finish; nothing fires after
// Stop returns.
func (s *Server) Stop() {
	s.controller.Close()
	s.sweeper.Stop()
}

// Router builds the HTTP surface.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/unsubscribe", s.pushH.Unsubscribe)

	mux.HandleFunc("POST /api/intake", s.intakeH.Create)
	mux.HandleFunc("GET /api/intake/today", s.intakeH.Today)
	mux.HandleFunc("DELETE /api/intake/today", s.intakeH.ResetToday)
	mux.HandleFunc("GET /api/intake/history", s.intakeH.History)

	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}
