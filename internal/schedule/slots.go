// Package schedule expands a centre's weekly availability into bookable
// assessment start times.
package schedule

import (
	"iter"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// DayOf returns the schedule entry for the weekday of date.  The second
// result is false when the centre has no entry for that day.
func DayOf(week model.WeekSchedule, date time.Time) (model.DaySchedule, bool) {
	day, ok := week[date.Weekday().String()]
	return day, ok
}

// ResolveSlots lazily yields the start times ("HH:MM") of every slot of
// length duration that fits inside an enabled period of date's weekday.
// Slots inside a period are spaced duration+buffer apart.  Periods are
// walked in the order they are defined.  Malformed periods and periods
// whose end is not after their start yield nothing.
func ResolveSlots(week model.WeekSchedule, date time.Time, duration, buffer int) iter.Seq[string] {
	return func(yield func(string) bool) {
		day, ok := DayOf(week, date)
		if !ok || !day.Enabled || duration <= 0 {
			return
		}
		if buffer < 0 {
			buffer = 0
		}
		for _, p := range day.Periods {
			start, err := model.ParseClock(p.Start)
			if err != nil {
				continue
			}
			end, err := model.ParseClock(p.End)
			if err != nil || end <= start {
				continue
			}
			for slot := start; slot+duration <= end; slot += duration + buffer {
				if !yield(model.FormatClock(slot)) {
					return
				}
			}
		}
	}
}

// Slots collects ResolveSlots into a slice.  The result is never nil.
func Slots(week model.WeekSchedule, date time.Time, duration, buffer int) []string {
	out := []string{}
	for s := range ResolveSlots(week, date, duration, buffer) {
		out = append(out, s)
	}
	return out
}

// IsDayBookable reports whether date's weekday is enabled and has at least
// one period that can hold a slot.
func IsDayBookable(week model.WeekSchedule, date time.Time) bool {
	day, ok := DayOf(week, date)
	if !ok || !day.Enabled {
		return false
	}
	for _, p := range day.Periods {
		start, err1 := model.ParseClock(p.Start)
		end, err2 := model.ParseClock(p.End)
		if err1 == nil && err2 == nil && end > start {
			return true
		}
	}
	return false
}

// BookableDates returns up to days consecutive calendar days starting at
// from for which IsDayBookable holds.
func BookableDates(week model.WeekSchedule, from time.Time, days int) []time.Time {
	out := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		if IsDayBookable(week, d) {
			out = append(out, d)
		}
	}
	return out
}
