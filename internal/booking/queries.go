package booking

import (
	"context"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/catalog"
	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/schedule"
)

// BookableDays is how far ahead the assessment calendar looks.
const BookableDays = 14

// ListAssessmentSlots returns the assessment start times a centre offers on
// date.
func (c *Coordinator) ListAssessmentSlots(ctx context.Context, locationID, date string) ([]string, error) {
	day, err := model.ParseDate(date)
	if err != nil {
		return nil, reject(KindValidation, "date must be YYYY-MM-DD")
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	loc, _, err := c.location(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return schedule.Slots(loc.Schedule, day, model.DefaultSessionMinutes, loc.BufferMinutes), nil
}

// ListBookableDates returns the days, starting tomorrow in the centre zone,
// on which the centre offers assessments.
func (c *Coordinator) ListBookableDates(ctx context.Context, locationID string, days int) ([]string, error) {
	if days <= 0 || days > 60 {
		days = BookableDays
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	loc, zone, err := c.location(ctx, locationID)
	if err != nil {
		return nil, err
	}
	from := model.Today(c.now(), zone).AddDate(0, 0, 1)
	out := []string{}
	for _, d := range schedule.BookableDates(loc.Schedule, from, days) {
		out = append(out, model.FormatDate(d))
	}
	return out, nil
}

// ListSessions returns the sessions of a centre on date with live roster
// counts, ordered by start time.
func (c *Coordinator) ListSessions(ctx context.Context, locationID, date string) ([]model.SessionView, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, reject(KindValidation, "date must be YYYY-MM-DD")
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	sessions, err := c.store.ListSessions(ctx, locationID, date)
	if err != nil {
		return nil, fromStore(err, "location")
	}
	ids := make([]string, 0, len(sessions))
	serviceIDs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
		serviceIDs = append(serviceIDs, s.ServiceID)
	}
	counts, err := c.store.CountRosters(ctx, ids)
	if err != nil {
		return nil, fromStore(err, "roster")
	}
	services, err := c.store.GetServices(ctx, serviceIDs)
	if err != nil {
		return nil, fromStore(err, "service")
	}
	return catalog.List(sessions, services, counts), nil
}

// EvaluateChildCredits reports the credit position of a child at a centre
// on date.  An empty date means today in the centre zone.
func (c *Coordinator) EvaluateChildCredits(ctx context.Context, parentID, locationID, child, date string) (credit.Status, error) {
	if parentID == "" || locationID == "" || model.ChildKey(child) == "" {
		return credit.Status{}, reject(KindValidation, "parent, location and child are required")
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	_, zone, err := c.location(ctx, locationID)
	if err != nil {
		return credit.Status{}, err
	}
	today := model.Today(c.now(), zone)
	if date != "" {
		if today, err = model.ParseDate(date); err != nil {
			return credit.Status{}, reject(KindValidation, "date must be YYYY-MM-DD")
		}
	}
	return c.evaluate(ctx, parentID, locationID, child, today)
}

func (c *Coordinator) evaluate(ctx context.Context, parentID, locationID, child string, today time.Time) (credit.Status, error) {
	sales, err := c.store.ListSales(ctx, parentID, locationID)
	if err != nil {
		return credit.Status{}, fromStore(err, "membership")
	}
	ids := make([]string, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
	}
	entries, err := c.store.ListCreditEntries(ctx, ids, model.FormatDate(credit.WindowStart(today)))
	if err != nil {
		return credit.Status{}, fromStore(err, "credit ledger")
	}
	return c.ledger.Evaluate(child, sales, entries, today), nil
}

// ListBookings returns the parent's active bookings grouped for display.
func (c *Coordinator) ListBookings(ctx context.Context, parentID string) (Grouped, error) {
	if parentID == "" {
		return Grouped{}, reject(KindValidation, "parent id is required")
	}
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	bookings, err := c.store.ListBookingsByParent(ctx, parentID)
	if err != nil {
		return Grouped{}, fromStore(err, "booking")
	}
	zones := map[string]*time.Location{}
	for _, b := range bookings {
		if _, ok := zones[b.LocationID]; ok {
			continue
		}
		zones[b.LocationID] = time.UTC
		if loc, err := c.store.GetLocation(ctx, b.LocationID); err == nil {
			zones[b.LocationID] = model.LoadZone(loc.Timezone)
		}
	}
	return Group(bookings, c.now(), func(id string) *time.Location { return zones[id] }), nil
}
