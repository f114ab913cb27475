package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"driply/internal/model"
	"driply/internal/store"
)

type IntakeHandler struct {
	intake *store.IntakeStore
	prefs  *store.PreferenceStore
	logger *slog.Logger
}

func NewIntakeHandler(intake *store.IntakeStore, prefs *store.PreferenceStore, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{intake: intake, prefs: prefs, logger: logger}
}

type createIntakeRequest struct {
	AmountMl int `json:"amount_ml"`
}

// Create handles POST /api/intake. A zero amount logs one configured cup.
func (h *IntakeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIntakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AmountMl < 0 {
		writeError(w, http.StatusBadRequest, "amount_ml must be positive")
		return
	}

	amount := req.AmountMl
	if amount == 0 {
		prefs, err := h.prefs.Get()
		if err != nil {
			h.logger.Error("load preferences", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load preferences")
			return
		}
		amount = prefs.CupSizeMl
	}

	event, err := h.intake.Add(amount, time.Now())
	if err != nil {
		h.logger.Error("log intake", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log intake")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// Today handles GET /api/intake/today.
func (h *IntakeHandler) Today(w http.ResponseWriter, r *http.Request) {
	day := model.DayKey(time.Now())

	total, err := h.intake.TotalForDay(day)
	if err != nil {
		h.logger.Error("total intake", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read intake")
		return
	}
	events, err := h.intake.ListForDay(day)
	if err != nil {
		h.logger.Error("list intake", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read intake")
		return
	}
	if events == nil {
		events = []model.IntakeEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"day":      day,
		"total_ml": total,
		"events":   events,
	})
}

// History handles GET /api/intake/history?days=N (default 7).
func (h *IntakeHandler) History(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}

	now := time.Now()
	from := model.DayKey(now.AddDate(0, 0, -(days - 1)))
	to := model.DayKey(now)

	events, err := h.intake.ListRange(from, to)
	if err != nil {
		h.logger.Error("list intake range", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read intake")
		return
	}
	if events == nil {
		events = []model.IntakeEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"from":   from,
		"to":     to,
		"events": events,
	})
}

// ResetToday handles DELETE /api/intake/today.
func (h *IntakeHandler) ResetToday(w http.ResponseWriter, r *http.Request) {
	if err := h.intake.ClearDay(model.DayKey(time.Now())); err != nil {
		h.logger.Error("clear intake", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear intake")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
