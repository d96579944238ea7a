// Package calendar answers US equity market-hours questions for a given instant.
// Nothing here reads the system clock; callers pass "now" explicitly.
//
// Holidays are not modelled: a weekday holiday is reported as a trading day.
package calendar

import (
	"time"
	_ "time/tzdata" // containers often ship without a zoneinfo database

	"StockPulse/internal/model"
)

// Eastern is the exchange time zone.
var Eastern = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Extended session window, in Eastern local hours: [4, 20).
const (
	ExtendedOpenHour  = 4
	ExtendedCloseHour = 20
)

// IsRegularHours reports whether now falls within 09:30:00–16:00:00 ET, inclusive.
func IsRegularHours(now time.Time) bool {
	t := now.In(Eastern)
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, Eastern)
	closing := time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, Eastern)
	return !t.Before(open) && !t.After(closing)
}

// IsTradingHours reports whether now is inside the extended session
// (Mon–Fri, 04:00 through 19:59:59 ET). Scheduled posts are gated on it.
func IsTradingHours(now time.Time) bool {
	t := now.In(Eastern)
	if IsWeekend(t) {
		return false
	}
	return t.Hour() >= ExtendedOpenHour && t.Hour() < ExtendedCloseHour
}

// IsWeekend reports whether t falls on Saturday or Sunday in Eastern time.
func IsWeekend(t time.Time) bool {
	switch t.In(Eastern).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// ExtendedSession returns the label of the extended session now belongs to:
// "" during regular hours, model.SessionPre before the 09:30 open, and
// model.SessionAfter otherwise.
func ExtendedSession(now time.Time) string {
	if IsRegularHours(now) {
		return ""
	}
	t := now.In(Eastern)
	if t.Hour() < 9 || (t.Hour() == 9 && t.Minute() < 30) {
		return model.SessionPre
	}
	return model.SessionAfter
}
