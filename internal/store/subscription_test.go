package store

import (
	"testing"
	"time"

	"driply/internal/database"
	"driply/internal/model"
)

func setupSubscriptionStore(t *testing.T) *SubscriptionStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSubscriptionStore(db)
}

func testPrefs() model.Preferences {
	p := model.DefaultPreferences()
	p.NotificationsEnabled = true
	return p
}

func TestUpsertInsert(t *testing.T) {
	ss := setupSubscriptionStore(t)

	sub, err := ss.Upsert("https://push.example.com/sub1", "p256dh1", "auth1", testPrefs())
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.Endpoint != "https://push.example.com/sub1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
	if !sub.Preferences.NotificationsEnabled {
		t.Error("preferences snapshot lost notifications flag")
	}
	if !sub.LastNotifiedAt.IsZero() {
		t.Errorf("fresh subscription last notified = %v, want zero", sub.LastNotifiedAt)
	}
}

func TestUpsertPreservesLastNotified(t *testing.T) {
	ss := setupSubscriptionStore(t)

	ss.Upsert("https://push.example.com/sub1", "p256dh1", "auth1", testPrefs())

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := ss.SetLastNotified("https://push.example.com/sub1", at); err != nil {
		t.Fatalf("set last notified: %v", err)
	}

	// Re-subscribing refreshes credentials and the snapshot but must not
	// reset the anti-duplicate guard.
	prefs := testPrefs()
	prefs.IntervalMinutes = 30
	sub, err := ss.Upsert("https://push.example.com/sub1", "p256dh2", "auth2", prefs)
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if sub.P256dhKey != "p256dh2" || sub.AuthKey != "auth2" {
		t.Errorf("credentials not refreshed: %+v", sub)
	}
	if sub.Preferences.IntervalMinutes != 30 {
		t.Errorf("snapshot not refreshed: %+v", sub.Preferences)
	}
	if !sub.LastNotifiedAt.Equal(at) {
		t.Errorf("last notified = %v, want %v (preserved)", sub.LastNotifiedAt, at)
	}

	// Still a single record.
	subs, err := ss.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("len = %d, want 1", len(subs))
	}
}

func TestDeleteByEndpoint(t *testing.T) {
	ss := setupSubscriptionStore(t)

	ss.Upsert("https://push.example.com/sub1", "p", "a", testPrefs())
	if err := ss.DeleteByEndpoint("https://push.example.com/sub1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sub, err := ss.GetByEndpoint("https://push.example.com/sub1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub != nil {
		t.Error("subscription still present after delete")
	}

	// Deleting an unknown endpoint succeeds.
	if err := ss.DeleteByEndpoint("https://push.example.com/unknown"); err != nil {
		t.Errorf("delete unknown endpoint: %v", err)
	}
}

func TestList(t *testing.T) {
	ss := setupSubscriptionStore(t)

	subs, err := ss.List()
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("len = %d, want 0", len(subs))
	}

	ss.Upsert("https://push.example.com/a", "p", "a", testPrefs())
	ss.Upsert("https://push.example.com/b", "p", "a", testPrefs())

	subs, err = ss.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("len = %d, want 2", len(subs))
	}
}
