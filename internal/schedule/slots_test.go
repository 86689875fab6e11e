package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func week(day model.DaySchedule) model.WeekSchedule {
	return model.WeekSchedule{"Monday": day}
}

func TestResolveSlots(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		day      model.DaySchedule
		duration int
		buffer   int
		want     []string
	}{
		{
			name:     "two slots without buffer",
			day:      model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "09:00", End: "10:20"}}},
			duration: 40,
			want:     []string{"09:00", "09:40"},
		},
		{
			name:     "buffer pushes second slot past the end",
			day:      model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "09:00", End: "10:20"}}},
			duration: 40,
			buffer:   10,
			want:     []string{"09:00"},
		},
		{
			name: "periods concatenated in definition order",
			day: model.DaySchedule{Enabled: true, Periods: []model.Period{
				{Start: "15:00", End: "16:00"},
				{Start: "09:00", End: "09:40"},
			}},
			duration: 40,
			want:     []string{"15:00", "09:00"},
		},
		{
			name:     "disabled day ignores periods",
			day:      model.DaySchedule{Enabled: false, Periods: []model.Period{{Start: "09:00", End: "17:00"}}},
			duration: 40,
			want:     []string{},
		},
		{
			name: "malformed and inverted periods yield nothing",
			day: model.DaySchedule{Enabled: true, Periods: []model.Period{
				{Start: "nine", End: "10:00"},
				{Start: "11:00", End: "10:00"},
				{Start: "12:00", End: "12:00"},
				{Start: "13:00", End: "13:40"},
			}},
			duration: 40,
			want:     []string{"13:00"},
		},
		{
			name: "loosely formatted times yield nothing",
			day: model.DaySchedule{Enabled: true, Periods: []model.Period{
				{Start: "09:0x", End: "10:00"},
				{Start: "+9:00", End: "10:00"},
				{Start: "09:5", End: "10:00"},
				{Start: "11:00", End: "12:00 "},
				{Start: "14:00", End: "14:40pm"},
			}},
			duration: 40,
			want:     []string{"11:00"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Slots(week(tc.day), monday, tc.duration, tc.buffer))
		})
	}
}

func TestResolveSlotsAbsentDay(t *testing.T) {
	t.Parallel()
	tuesday := monday.AddDate(0, 0, 1)
	day := model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "09:00", End: "17:00"}}}
	assert.Empty(t, Slots(week(day), tuesday, 40, 0))
}

func TestResolveSlotsStopsEarly(t *testing.T) {
	t.Parallel()
	day := model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "08:00", End: "20:00"}}}
	var got []string
	for s := range ResolveSlots(week(day), monday, 40, 0) {
		got = append(got, s)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"08:00", "08:40"}, got)
}

func TestIsDayBookable(t *testing.T) {
	t.Parallel()
	assert.True(t, IsDayBookable(week(model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "09:00", End: "10:00"}}}), monday))
	assert.False(t, IsDayBookable(week(model.DaySchedule{Enabled: true}), monday))
	assert.False(t, IsDayBookable(week(model.DaySchedule{Enabled: false, Periods: []model.Period{{Start: "09:00", End: "10:00"}}}), monday))
	assert.False(t, IsDayBookable(week(model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "10:00", End: "09:00"}}}), monday))
	assert.False(t, IsDayBookable(model.WeekSchedule{}, monday))
}

func TestBookableDates(t *testing.T) {
	t.Parallel()
	open := model.DaySchedule{Enabled: true, Periods: []model.Period{{Start: "09:00", End: "10:00"}}}
	w := model.WeekSchedule{"Monday": open, "Wednesday": open}
	got := BookableDates(w, monday, 14)
	var days []string
	for _, d := range got {
		days = append(days, model.FormatDate(d))
	}
	assert.Equal(t, []string{"2026-03-02", "2026-03-04", "2026-03-09", "2026-03-11"}, days)
}
