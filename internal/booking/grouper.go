package booking

import (
	"sort"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// Card is one entry of the grouped booking view: either a single booking
// or a recurring group represented by its next occurrence.
type Card struct {
	model.Booking
	EndTime     string `json:"endTime"`
	Recurring   bool   `json:"recurring"`
	Total       int    `json:"total,omitempty"`
	FutureCount int    `json:"futureCount"`
	PastCount   int    `json:"pastCount"`
	CanCancel   bool   `json:"canCancel"`
}

// Grouped is the display shape of a parent's bookings.
type Grouped struct {
	Upcoming []Card `json:"upcoming"`
	Past     []Card `json:"past"`
}

type occurrence struct {
	b     model.Booking
	start time.Time
}

// Group collapses bookings sharing a recurring group id into one card and
// sorts every card newest first.  For a group, the representative is the
// earliest occurrence starting at or after now; FutureCount counts the
// occurrences after it and PastCount those that already started.  A group
// with nothing left falls back to its first occurrence.  Cancelled
// bookings are skipped.  zoneOf resolves the zone of a location id; nil
// means UTC everywhere.
func Group(bookings []model.Booking, now time.Time, zoneOf func(locationID string) *time.Location) Grouped {
	if zoneOf == nil {
		zoneOf = func(string) *time.Location { return time.UTC }
	}
	var (
		cards  []Card
		starts = map[string]time.Time{}
		groups = map[string][]occurrence{}
		order  []string
	)
	for _, b := range bookings {
		if b.Status == model.BookingCancelled {
			continue
		}
		zone := zoneOf(b.LocationID)
		occ := occurrence{b: b, start: startOf(b, zone)}
		if b.RecurringGroupID == "" {
			cards = append(cards, Card{Booking: b, EndTime: b.EndTime(), CanCancel: CanCancel(b, now, zone)})
			starts[b.ID] = occ.start
			continue
		}
		if _, seen := groups[b.RecurringGroupID]; !seen {
			order = append(order, b.RecurringGroupID)
		}
		groups[b.RecurringGroupID] = append(groups[b.RecurringGroupID], occ)
	}

	for _, id := range order {
		occs := groups[id]
		sort.SliceStable(occs, func(i, j int) bool { return occs[i].start.Before(occs[j].start) })
		next, future, past := -1, 0, 0
		for i, o := range occs {
			if o.start.Before(now) {
				past++
				continue
			}
			if next < 0 {
				next = i
				continue
			}
			future++
		}
		if next < 0 {
			next = 0
		}
		rep := occs[next].b
		cards = append(cards, Card{
			Booking:     rep,
			EndTime:     rep.EndTime(),
			Recurring:   true,
			Total:       len(occs),
			FutureCount: future,
			PastCount:   past,
			CanCancel:   CanCancel(rep, now, zoneOf(rep.LocationID)),
		})
		starts[rep.ID] = occs[next].start
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return starts[cards[i].ID].After(starts[cards[j].ID])
	})

	out := Grouped{Upcoming: []Card{}, Past: []Card{}}
	for _, c := range cards {
		if starts[c.ID].Before(now) {
			out.Past = append(out.Past, c)
		} else {
			out.Upcoming = append(out.Upcoming, c)
		}
	}
	return out
}

// startOf resolves the start instant of a booking.  A malformed time
// falls back to midnight of its date; a malformed date sorts as the zero
// time.
func startOf(b model.Booking, zone *time.Location) time.Time {
	if t, err := model.StartsAt(b.Date, b.Time, zone); err == nil {
		return t
	}
	if t, err := model.StartsAt(b.Date, "00:00", zone); err == nil {
		return t
	}
	return time.Time{}
}
