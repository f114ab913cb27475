// Package reminder implements the hydration reminder engine: the pure
// decision function that says whether a reminder should fire right now, the
// background ticker that keeps evaluating it, and the session controller
// that ties the two to a delivery channel.
package reminder

import (
	"strconv"
	"strings"
	"time"

	"driply/internal/model"
)

// Outcome is the result class of one decision evaluation.
type Outcome string

const (
	OutcomeFire     Outcome = "fire"
	OutcomeSuppress Outcome = "suppress"
)

// Reason explains a suppressed decision.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonDisabled     Reason = "disabled"
	ReasonGoalMet      Reason = "goal_met"
	ReasonSleeping     Reason = "sleeping"
	ReasonRecentDrink  Reason = "too_soon_since_drink"
	ReasonRecentNotify Reason = "too_soon_since_notify"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Outcome Outcome
	Reason  Reason
}

// Fire reports whether the decision calls for a notification.
func (d Decision) Fire() bool { return d.Outcome == OutcomeFire }

func suppress(r Reason) Decision {
	return Decision{Outcome: OutcomeSuppress, Reason: r}
}

// Decide evaluates whether a reminder should fire at now. It is pure: the
// same inputs always produce the same decision, and callers own all side
// effects (delivery, persisting the last-notified time).
//
// A zero lastDrinkAt means nothing was logged today; the wake instant of the
// active awake window stands in for it, so the first reminder of the day
// arrives one interval after wake-up. A zero lastNotifiedAt means no
// reminder has been delivered yet on this channel.
//
// Suppression checks short-circuit in a fixed order: disabled, goal met,
// outside the awake window, drank too recently, notified too recently. The
// notify guard shares intervalMinutes with the drink guard so cadence can
// never outrun the configured interval however fast the evaluator ticks.
func Decide(now time.Time, prefs model.Preferences, lastDrinkAt time.Time, totalTodayMl int, lastNotifiedAt time.Time) Decision {
	if !prefs.NotificationsEnabled {
		return suppress(ReasonDisabled)
	}
	if prefs.DailyGoalMl > 0 && totalTodayMl >= prefs.DailyGoalMl {
		return suppress(ReasonGoalMet)
	}

	wakeMin := clockMinutes(prefs.WakeTime, model.DefaultWakeTime)
	sleepMin := clockMinutes(prefs.SleepTime, model.DefaultSleepTime)
	nowMin := now.Hour()*60 + now.Minute()

	if !awake(nowMin, wakeMin, sleepMin) {
		return suppress(ReasonSleeping)
	}

	interval := time.Duration(prefs.IntervalMinutes) * time.Minute

	sinceDrink := lastDrinkAt
	if sinceDrink.IsZero() {
		sinceDrink = wakeInstant(now, nowMin, wakeMin, sleepMin)
	}
	if now.Sub(sinceDrink) < interval {
		return suppress(ReasonRecentDrink)
	}

	if !lastNotifiedAt.IsZero() && now.Sub(lastNotifiedAt) < interval {
		return suppress(ReasonRecentNotify)
	}

	return Decision{Outcome: OutcomeFire}
}

// DecideServer is the registry-side variant of Decide. The server has no
// live intake ledger, so the consumed total is taken as zero and the last
// drink falls back to the wake instant. A user whose device is offline may
// therefore receive a remote reminder the device itself would have
// suppressed; that staleness is accepted.
func DecideServer(now time.Time, prefs model.Preferences, lastNotifiedAt time.Time) Decision {
	return Decide(now, prefs, time.Time{}, 0, lastNotifiedAt)
}

// awake reports whether the minute-of-day falls inside the wake..sleep
// window. A sleep time at or before the wake time wraps past midnight:
// awake when now >= wake or now < sleep.
func awake(nowMin, wakeMin, sleepMin int) bool {
	if wakeMin == sleepMin {
		return true
	}
	if wakeMin < sleepMin {
		return nowMin >= wakeMin && nowMin < sleepMin
	}
	return nowMin >= wakeMin || nowMin < sleepMin
}

// wakeInstant returns the wake time of the awake window containing now.
// In a wrapped window, a now before the sleep boundary belongs to the
// window that started yesterday.
func wakeInstant(now time.Time, nowMin, wakeMin, sleepMin int) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if wakeMin > sleepMin && nowMin < sleepMin {
		day = day.AddDate(0, 0, -1)
	}
	return day.Add(time.Duration(wakeMin) * time.Minute)
}

// clockMinutes parses an "HH:mm" wall-clock string into minutes past
// midnight, falling back to the given default on malformed input.
func clockMinutes(s, fallback string) int {
	h, m, ok := parseClock(s)
	if !ok {
		h, m, _ = parseClock(fallback)
	}
	return h*60 + m
}

func parseClock(s string) (hour, min int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	min, err = strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, 0, false
	}
	return hour, min, true
}
