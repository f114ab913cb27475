package model

import "time"

// Defaults applied to a fresh install and to any missing preference key.
const (
	DefaultDailyGoalMl     = 2000
	DefaultCupSizeMl       = 200
	DefaultWakeTime        = "07:00"
	DefaultSleepTime       = "23:00"
	DefaultIntervalMinutes = 60
)

// Preferences holds the user's hydration settings. Wake and sleep times are
// wall-clock "HH:mm" strings; a sleep time earlier than the wake time means
// the awake window wraps past midnight.
type Preferences struct {
	DailyGoalMl          int    `json:"daily_goal_ml"`
	CupSizeMl            int    `json:"cup_size_ml"`
	WakeTime             string `json:"wake_time"`
	SleepTime            string `json:"sleep_time"`
	IntervalMinutes      int    `json:"interval_minutes"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	IsOnboarded          bool   `json:"is_onboarded"`
}

// DefaultPreferences returns the out-of-the-box settings (notifications off
// until the user opts in).
func DefaultPreferences() Preferences {
	return Preferences{
		DailyGoalMl:     DefaultDailyGoalMl,
		CupSizeMl:       DefaultCupSizeMl,
		WakeTime:        DefaultWakeTime,
		SleepTime:       DefaultSleepTime,
		IntervalMinutes: DefaultIntervalMinutes,
	}
}

// IntakeEvent is one logged drink. Immutable once written.
type IntakeEvent struct {
	ID         string    `json:"id"`
	AmountMl   int       `json:"amount_ml"`
	OccurredAt time.Time `json:"occurred_at"`
	DayKey     string    `json:"day_key"`
}

// DayKey returns the calendar-date key for t in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// PushSubscription is one registered browser push endpoint together with the
// preferences snapshot taken at subscribe time. The snapshot may drift from
// the live preferences until the device re-subscribes; that staleness is
// accepted.
type PushSubscription struct {
	ID             int64       `json:"id"`
	Endpoint       string      `json:"endpoint"`
	P256dhKey      string      `json:"p256dh_key"`
	AuthKey        string      `json:"auth_key"`
	Preferences    Preferences `json:"preferences"`
	LastNotifiedAt time.Time   `json:"last_notified_at"`
	CreatedAt      time.Time   `json:"created_at"`
}
