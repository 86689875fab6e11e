package booking

import (
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// MinCancelNotice is how long before the start a booking may still be
// cancelled.  It is a fixed policy for every centre.
const MinCancelNotice = 4 * time.Hour

// TimeUntil returns the time from now to the booking start, evaluated in
// the centre zone.  It is negative for bookings that already started.
func TimeUntil(b model.Booking, now time.Time, zone *time.Location) (time.Duration, error) {
	start, err := model.StartsAt(b.Date, b.Time, zone)
	if err != nil {
		return 0, err
	}
	return start.Sub(now), nil
}

// HoursUntil is TimeUntil in fractional hours.
func HoursUntil(b model.Booking, now time.Time, zone *time.Location) (float64, error) {
	d, err := TimeUntil(b, now, zone)
	if err != nil {
		return 0, err
	}
	return d.Hours(), nil
}

// CanCancel reports whether the booking is at least MinCancelNotice away.
// Bookings whose date or time cannot be parsed are cancellable.
func CanCancel(b model.Booking, now time.Time, zone *time.Location) bool {
	d, err := TimeUntil(b, now, zone)
	if err != nil {
		return true
	}
	return d >= MinCancelNotice
}
