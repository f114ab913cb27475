package store

import (
	"database/sql"
	"fmt"
	"time"

	"driply/internal/model"
)

// SubscriptionStore is the server-side push subscription registry: one row
// per device endpoint with the preferences snapshot taken at subscribe time.
type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionColumns = `id, endpoint, p256dh_key, auth_key,
	daily_goal_ml, cup_size_ml, wake_time, sleep_time, interval_minutes,
	notifications_enabled, last_notified_at, created_at`

// Upsert registers or refreshes a subscription keyed by endpoint. Delivery
// credentials and the preferences snapshot are always replaced;
// last_notified_at is preserved so re-subscribing cannot reset the
// anti-duplicate guard.
func (s *SubscriptionStore) Upsert(endpoint, p256dh, auth string, prefs model.Preferences) (*model.PushSubscription, error) {
	enabled := 0
	if prefs.NotificationsEnabled {
		enabled = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions
		 (endpoint, p256dh_key, auth_key, daily_goal_ml, cup_size_ml, wake_time, sleep_time, interval_minutes, notifications_enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET
		   p256dh_key = excluded.p256dh_key,
		   auth_key = excluded.auth_key,
		   daily_goal_ml = excluded.daily_goal_ml,
		   cup_size_ml = excluded.cup_size_ml,
		   wake_time = excluded.wake_time,
		   sleep_time = excluded.sleep_time,
		   interval_minutes = excluded.interval_minutes,
		   notifications_enabled = excluded.notifications_enabled`,
		endpoint, p256dh, auth,
		prefs.DailyGoalMl, prefs.CupSizeMl, prefs.WakeTime, prefs.SleepTime,
		prefs.IntervalMinutes, enabled,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert push subscription: %w", err)
	}
	return s.GetByEndpoint(endpoint)
}

// GetByEndpoint returns the subscription for an endpoint, or nil when none
// is registered.
func (s *SubscriptionStore) GetByEndpoint(endpoint string) (*model.PushSubscription, error) {
	row := s.db.QueryRow(
		`SELECT `+subscriptionColumns+` FROM push_subscriptions WHERE endpoint = ?`, endpoint,
	)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription: %w", err)
	}
	return sub, nil
}

// List returns every registered subscription, oldest first.
func (s *SubscriptionStore) List() ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT ` + subscriptionColumns + ` FROM push_subscriptions ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// DeleteByEndpoint removes a subscription. Deleting an unknown endpoint is
// not an error.
func (s *SubscriptionStore) DeleteByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// SetLastNotified records a confirmed remote delivery for the endpoint.
func (s *SubscriptionStore) SetLastNotified(endpoint string, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE push_subscriptions SET last_notified_at = ? WHERE endpoint = ?`,
		at.UTC(), endpoint,
	)
	if err != nil {
		return fmt.Errorf("set subscription last notified: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*model.PushSubscription, error) {
	var (
		sub          model.PushSubscription
		enabled      int
		lastNotified sql.NullTime
	)
	err := row.Scan(
		&sub.ID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey,
		&sub.Preferences.DailyGoalMl, &sub.Preferences.CupSizeMl,
		&sub.Preferences.WakeTime, &sub.Preferences.SleepTime,
		&sub.Preferences.IntervalMinutes, &enabled,
		&lastNotified, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Preferences.NotificationsEnabled = enabled != 0
	if lastNotified.Valid {
		sub.LastNotifiedAt = lastNotified.Time
	}
	return &sub, nil
}
