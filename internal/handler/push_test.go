package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"driply/internal/database"
	"driply/internal/middleware"
	"driply/internal/model"
	"driply/internal/push"
	"driply/internal/reminder"
	"driply/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSubPrefs() model.Preferences {
	p := model.DefaultPreferences()
	p.NotificationsEnabled = true
	return p
}

func setupPushHandler(t *testing.T) (*PushHandler, *store.SubscriptionStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	subs := store.NewSubscriptionStore(db)
	svc := push.NewService("test-public-key", "test-private-key")
	h := NewPushHandler(subs, svc, middleware.NewRateLimiter(), discardLogger())
	return h, subs
}

func TestGetVAPIDKey(t *testing.T) {
	h, _ := setupPushHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/vapid-key", nil)
	w := httptest.NewRecorder()
	h.GetVAPIDKey(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "test-public-key") {
		t.Errorf("body = %s, want public key", w.Body.String())
	}
}

func TestSubscribe(t *testing.T) {
	h, subs := setupPushHandler(t)

	body := `{
		"subscription": {
			"endpoint": "https://push.example.com/sub1",
			"keys": {"p256dh": "pkey", "auth": "akey"}
		},
		"preferences": {
			"daily_goal_ml": 2500,
			"cup_size_ml": 250,
			"wake_time": "07:00",
			"sleep_time": "23:00",
			"interval_minutes": 45,
			"notifications_enabled": true
		}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Subscribe(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	sub, err := subs.GetByEndpoint("https://push.example.com/sub1")
	if err != nil || sub == nil {
		t.Fatalf("subscription not stored: %v", err)
	}
	if sub.P256dhKey != "pkey" || sub.AuthKey != "akey" {
		t.Errorf("stored keys = %q/%q", sub.P256dhKey, sub.AuthKey)
	}
	if sub.Preferences.IntervalMinutes != 45 {
		t.Errorf("snapshot interval = %d, want 45", sub.Preferences.IntervalMinutes)
	}
}

func TestSubscribeDefaultsPreferences(t *testing.T) {
	h, subs := setupPushHandler(t)

	body := `{"subscription": {"endpoint": "https://push.example.com/sub1", "keys": {"p256dh": "p", "auth": "a"}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Subscribe(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	sub, _ := subs.GetByEndpoint("https://push.example.com/sub1")
	if sub == nil || !sub.Preferences.NotificationsEnabled {
		t.Error("defaulted snapshot should have notifications enabled")
	}
}

func TestSubscribeSparsePreferences(t *testing.T) {
	h, subs := setupPushHandler(t)

	// Only the toggle and the window are supplied; the interval must come
	// from defaults, or the registry snapshot would fire on every sweep.
	body := `{
		"subscription": {"endpoint": "https://push.example.com/sub1", "keys": {"p256dh": "p", "auth": "a"}},
		"preferences": {"notifications_enabled": true, "wake_time": "00:00", "sleep_time": "00:00"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Subscribe(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	sub, _ := subs.GetByEndpoint("https://push.example.com/sub1")
	if sub == nil {
		t.Fatal("subscription not stored")
	}
	if sub.Preferences.IntervalMinutes != model.DefaultIntervalMinutes {
		t.Fatalf("snapshot interval = %d, want default %d", sub.Preferences.IntervalMinutes, model.DefaultIntervalMinutes)
	}
	if sub.Preferences.DailyGoalMl != model.DefaultDailyGoalMl {
		t.Errorf("snapshot goal = %d, want default %d", sub.Preferences.DailyGoalMl, model.DefaultDailyGoalMl)
	}

	// The stored snapshot keeps reminder cadence bounded: after one firing
	// decision, the next minute's re-evaluation is suppressed.
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if d := reminder.DecideServer(noon, sub.Preferences, time.Time{}); !d.Fire() {
		t.Fatalf("first evaluation suppressed: %s", d.Reason)
	}
	if d := reminder.DecideServer(noon.Add(time.Minute), sub.Preferences, noon); d.Fire() {
		t.Error("fired again one minute after a delivery")
	}
}

func TestSubscribeRejectsInvalidPreferences(t *testing.T) {
	h, _ := setupPushHandler(t)

	cases := []struct {
		name  string
		prefs string
	}{
		{"negative interval", `{"interval_minutes": -5}`},
		{"negative goal", `{"daily_goal_ml": -100}`},
		{"bad wake time", `{"wake_time": "8am"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := `{"subscription": {"endpoint": "https://push.example.com/x", "keys": {"p256dh": "p", "auth": "a"}}, "preferences": ` + tc.prefs + `}`
			req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(body))
			w := httptest.NewRecorder()
			h.Subscribe(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	h, _ := setupPushHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"bad json", `{not json`},
		{"missing endpoint", `{"subscription": {"keys": {"p256dh": "p", "auth": "a"}}}`},
		{"missing keys", `{"subscription": {"endpoint": "https://push.example.com/x", "keys": {}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.Subscribe(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSubscribeRateLimited(t *testing.T) {
	h, _ := setupPushHandler(t)

	body := `{"subscription": {"endpoint": "https://push.example.com/%d", "keys": {"p256dh": "p", "auth": "a"}}}`
	var last int
	for i := 0; i < 31; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(fmt.Sprintf(body, i)))
		w := httptest.NewRecorder()
		h.Subscribe(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}

func TestUnsubscribe(t *testing.T) {
	h, subs := setupPushHandler(t)

	subs.Upsert("https://push.example.com/sub1", "p", "a", testSubPrefs())

	req := httptest.NewRequest(http.MethodPost, "/api/unsubscribe", strings.NewReader(`{"endpoint": "https://push.example.com/sub1"}`))
	w := httptest.NewRecorder()
	h.Unsubscribe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	sub, _ := subs.GetByEndpoint("https://push.example.com/sub1")
	if sub != nil {
		t.Error("subscription still registered")
	}

	// Unknown endpoint still succeeds.
	req = httptest.NewRequest(http.MethodPost, "/api/unsubscribe", strings.NewReader(`{"endpoint": "https://push.example.com/ghost"}`))
	w = httptest.NewRecorder()
	h.Unsubscribe(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for unknown endpoint", w.Code)
	}
}
