package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"driply/internal/middleware"
	"driply/internal/model"
	"driply/internal/push"
	"driply/internal/store"
)

type PushHandler struct {
	subs    *store.SubscriptionStore
	service *push.Service
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

func NewPushHandler(subs *store.SubscriptionStore, svc *push.Service, limiter *middleware.RateLimiter, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, service: svc, limiter: limiter, logger: logger}
}

type subscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
	Preferences *model.Preferences `json:"preferences"`
}

// Subscribe handles POST /api/subscribe: an idempotent upsert keyed by the
// subscription endpoint. The preferences in the body become the record's
// snapshot; re-subscribing is also how a device refreshes that snapshot.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(middleware.RealIP(r), 30, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Subscription.Endpoint == "" || req.Subscription.Keys.P256dh == "" || req.Subscription.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	prefs := model.DefaultPreferences()
	prefs.NotificationsEnabled = true
	if req.Preferences != nil {
		prefs = mergePreferences(*req.Preferences)
		if msg := validatePreferences(prefs); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	sub, err := h.subs.Upsert(req.Subscription.Endpoint, req.Subscription.Keys.P256dh, req.Subscription.Keys.Auth, prefs)
	if err != nil {
		h.logger.Error("save push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	h.logger.Info("subscription registered", "endpoint", sub.Endpoint)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "subscribed"})
}

// mergePreferences fills the unset fields of a sparse preferences object
// with defaults. A snapshot stored with interval_minutes 0 would pass both
// elapsed-time guards on every sweep, so sparse input must never reach the
// registry as-is.
func mergePreferences(p model.Preferences) model.Preferences {
	d := model.DefaultPreferences()
	if p.DailyGoalMl == 0 {
		p.DailyGoalMl = d.DailyGoalMl
	}
	if p.CupSizeMl == 0 {
		p.CupSizeMl = d.CupSizeMl
	}
	if p.IntervalMinutes == 0 {
		p.IntervalMinutes = d.IntervalMinutes
	}
	if p.WakeTime == "" {
		p.WakeTime = d.WakeTime
	}
	if p.SleepTime == "" {
		p.SleepTime = d.SleepTime
	}
	return p
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/unsubscribe. Succeeds whether or not the
// endpoint was registered.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.subs.DeleteByEndpoint(req.Endpoint); err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "unsubscribed"})
}

// GetVAPIDKey handles GET /api/vapid-key.
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.service.VAPIDPublicKey()})
}
