package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"driply/internal/model"
	"driply/internal/reminder"
	"driply/internal/store"
)

type SettingsHandler struct {
	prefs      *store.PreferenceStore
	controller *reminder.Controller
	logger     *slog.Logger
}

func NewSettingsHandler(prefs *store.PreferenceStore, controller *reminder.Controller, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{prefs: prefs, controller: controller, logger: logger}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Get()
	if err != nil {
		h.logger.Error("load preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// Update handles PUT /api/settings. Toggling notifications on starts the
// local reminder loop; a missing delivery channel is reported here, at the
// toggle, and nowhere else. Other edits take effect on the very next tick
// without a restart, since ticks read a fresh snapshot.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var prefs model.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validatePreferences(prefs); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.prefs.Save(prefs); err != nil {
		h.logger.Error("save preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	resp := map[string]any{"preferences": prefs}
	if err := h.controller.SetEnabled(r.Context(), prefs.NotificationsEnabled); err != nil {
		// Remote push still works; only the local channel is down.
		h.logger.Warn("enable local reminders", "error", err)
		resp["local_delivery"] = "unavailable"
	} else if prefs.NotificationsEnabled {
		resp["local_delivery"] = "active"
	} else {
		resp["local_delivery"] = "disabled"
	}

	writeJSON(w, http.StatusOK, resp)
}

func validatePreferences(p model.Preferences) string {
	if p.DailyGoalMl <= 0 {
		return "daily_goal_ml must be positive"
	}
	if p.CupSizeMl <= 0 {
		return "cup_size_ml must be positive"
	}
	if p.IntervalMinutes <= 0 {
		return "interval_minutes must be positive"
	}
	if _, err := time.Parse("15:04", p.WakeTime); err != nil {
		return "wake_time must be HH:mm"
	}
	if _, err := time.Parse("15:04", p.SleepTime); err != nil {
		return "sleep_time must be HH:mm"
	}
	return ""
}
