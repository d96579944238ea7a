package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"StockPulse/internal/calendar"
	"StockPulse/internal/model"
)

// NextAlignedTime returns the first instant after now that lands on a multiple of
// intervalMinutes counted from Eastern midnight. Slots at or after 20:00 roll to
// 04:00 the next day, and weekend slots move to 04:00 on Monday.
//
// Slots are built from wall-clock fields, so a 60 minute interval stays on the
// hour across DST changes. A non-positive interval uses the default.
func NextAlignedTime(intervalMinutes int, now time.Time) time.Time {
	if intervalMinutes <= 0 {
		intervalMinutes = model.DefaultIntervalMinutes
	}
	local := now.In(calendar.Eastern)
	elapsed := local.Hour()*60 + local.Minute()

	for k := elapsed/intervalMinutes + 1; ; k++ {
		next := rollover(wallClock(local, 0, k*intervalMinutes))
		// On DST fall-back an ambiguous wall time may resolve before now.
		if next.After(now) {
			return next
		}
	}
}

// wallClock returns hour:minute on day's calendar date; minute may exceed 59.
func wallClock(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, calendar.Eastern)
}

func rollover(t time.Time) time.Time {
	if t.Hour() >= calendar.ExtendedCloseHour {
		t = wallClock(t.AddDate(0, 0, 1), calendar.ExtendedOpenHour, 0)
	}
	for calendar.IsWeekend(t) {
		t = wallClock(t.AddDate(0, 0, 1), calendar.ExtendedOpenHour, 0)
	}
	return t
}

// AlignedSchedule adapts NextAlignedTime to cron.Schedule.
type AlignedSchedule struct {
	IntervalMinutes int
}

var _ cron.Schedule = AlignedSchedule{}

// Next implements cron.Schedule.
func (s AlignedSchedule) Next(t time.Time) time.Time {
	return NextAlignedTime(s.IntervalMinutes, t)
}
