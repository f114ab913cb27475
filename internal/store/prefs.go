package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"driply/internal/model"
)

const lastNotifiedKey = "last_notified_at"

// PreferenceStore persists the user's hydration settings and the
// device-local last-notified timestamp in a key-value settings table.
type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get returns the stored preferences, with defaults filled in for any key
// never written. A fresh database yields model.DefaultPreferences().
func (s *PreferenceStore) Get() (model.Preferences, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.Preferences{}, fmt.Errorf("scan preference: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return model.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	prefs := model.DefaultPreferences()
	prefs.DailyGoalMl = intValue(values, "daily_goal_ml", prefs.DailyGoalMl)
	prefs.CupSizeMl = intValue(values, "cup_size_ml", prefs.CupSizeMl)
	prefs.IntervalMinutes = intValue(values, "interval_minutes", prefs.IntervalMinutes)
	if v, ok := values["wake_time"]; ok {
		prefs.WakeTime = v
	}
	if v, ok := values["sleep_time"]; ok {
		prefs.SleepTime = v
	}
	prefs.NotificationsEnabled = boolValue(values, "notifications_enabled", prefs.NotificationsEnabled)
	prefs.IsOnboarded = boolValue(values, "is_onboarded", prefs.IsOnboarded)
	return prefs, nil
}

// Save writes all preference keys.
func (s *PreferenceStore) Save(prefs model.Preferences) error {
	pairs := map[string]string{
		"daily_goal_ml":         strconv.Itoa(prefs.DailyGoalMl),
		"cup_size_ml":           strconv.Itoa(prefs.CupSizeMl),
		"wake_time":             prefs.WakeTime,
		"sleep_time":            prefs.SleepTime,
		"interval_minutes":      strconv.Itoa(prefs.IntervalMinutes),
		"notifications_enabled": strconv.FormatBool(prefs.NotificationsEnabled),
		"is_onboarded":          strconv.FormatBool(prefs.IsOnboarded),
	}
	for k, v := range pairs {
		if err := s.set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// LastNotified returns the device-local last-notified time, zero when no
// local reminder has fired yet.
func (s *PreferenceStore) LastNotified() (time.Time, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, lastNotifiedKey).Scan(&v)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last notified: %w", err)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last notified: %w", err)
	}
	return t, nil
}

// SetLastNotified records a local delivery.
func (s *PreferenceStore) SetLastNotified(at time.Time) error {
	return s.set(lastNotifiedKey, at.UTC().Format(time.RFC3339))
}

// GetSetting reads one raw settings key; ok is false when unset.
func (s *PreferenceStore) GetSetting(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetSetting writes one raw settings key.
func (s *PreferenceStore) SetSetting(key, value string) error {
	return s.set(key, value)
}

func (s *PreferenceStore) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func intValue(values map[string]string, key string, fallback int) int {
	v, ok := values[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func boolValue(values map[string]string, key string, fallback bool) bool {
	v, ok := values[key]
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
