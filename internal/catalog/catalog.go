// Package catalog joins scheduled sessions with their service definition
// and live roster size.
package catalog

import (
	"sort"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// Compose builds the parent-facing view of a session.  Capacity and
// accepted plans come from the session when it overrides them and from
// the service otherwise.
func Compose(s model.Session, svc model.Service, count int) model.SessionView {
	if s.Duration <= 0 {
		s.Duration = model.DefaultSessionMinutes
	}
	capacity := svc.MaxStudents
	if s.MaxStudents > 0 {
		capacity = s.MaxStudents
	}
	allowed := svc.AllowedMembershipIDs
	if len(s.AllowedMembershipIDs) > 0 {
		allowed = s.AllowedMembershipIDs
	}
	if allowed == nil {
		allowed = []string{}
	}
	v := model.SessionView{
		Session:              s,
		ServiceName:          svc.Name,
		EndTime:              model.AddMinutes(s.Time, s.Duration),
		StudentCount:         count,
		MaxStudents:          capacity,
		AllowedMembershipIDs: allowed,
	}
	v.SpotsLeft = capacity - count
	if v.SpotsLeft < 0 {
		v.SpotsLeft = 0
	}
	v.Full = count >= capacity
	return v
}

// Accepts reports whether a plan may be used for the session.  An empty
// accepted set admits any plan.
func Accepts(v model.SessionView, membershipID string) bool {
	if len(v.AllowedMembershipIDs) == 0 {
		return true
	}
	for _, id := range v.AllowedMembershipIDs {
		if id == membershipID {
			return true
		}
	}
	return false
}

// List composes every session and sorts the result ascending by start
// time.  Sessions whose service is missing are composed against an empty
// service.
func List(sessions []model.Session, services map[string]model.Service, counts map[string]int) []model.SessionView {
	out := make([]model.SessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Compose(s, services[s.ServiceID], counts[s.ID]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return clockOrder(out[i].Time) < clockOrder(out[j].Time)
	})
	return out
}

// clockOrder sorts malformed times last.
func clockOrder(clock string) int {
	m, err := model.ParseClock(clock)
	if err != nil {
		return 1 << 20
	}
	return m
}
