package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"9:05", 545, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"09:0x", 0, true},
		{"+9:00", 0, true},
		{"-1:00", 0, true},
		{"09:5", 0, true},
		{"009:00", 0, true},
		{"09:00:00", 0, true},
		{"9:00pm", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestStartsAtUsesZone(t *testing.T) {
	t.Parallel()
	syd := LoadZone("Australia/Sydney")
	at, err := StartsAt("2026-03-02", "16:30", syd)
	require.NoError(t, err)
	assert.Equal(t, 16, at.Hour())
	assert.Equal(t, syd, at.Location())

	_, err = StartsAt("2026-03-02", "4pm", syd)
	assert.Error(t, err)
}

func TestTodayIsCalendarDayInZone(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) // 07:00 on the 2nd in Sydney
	assert.Equal(t, "2026-03-02", FormatDate(Today(now, LoadZone("Australia/Sydney"))))
	assert.Equal(t, "2026-03-01", FormatDate(Today(now, nil)))
}

func TestBookingEndTime(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "16:40", Booking{Time: "16:00"}.EndTime())
	assert.Equal(t, "17:00", Booking{Time: "16:00", Duration: 60}.EndTime())
	assert.Equal(t, "", Booking{Time: "bad"}.EndTime())
}

func TestChildKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ava", ChildKey("  Ava "))
}
