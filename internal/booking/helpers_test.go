package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository/memory"
)

// now is Monday 2026-03-02 08:00 UTC.
var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	queues []string
	alerts []any
}

func (r *recorder) Publish(_ context.Context, q string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues = append(r.queues, q)
	if q == "booking.alerts" {
		r.alerts = append(r.alerts, payload)
	}
	return nil
}

func (r *recorder) count(q string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.queues {
		if x == q {
			n++
		}
	}
	return n
}

type fixture struct {
	store  *memory.Store
	events *recorder
	coord  *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	st.SetClock(func() time.Time { return now })
	st.PutLocation(model.Location{
		ID:    "loc",
		Name:  "Parramatta",
		Phone: "02 9000 0000",
		Schedule: model.WeekSchedule{
			"Monday":  {Enabled: true, Periods: []model.Period{{Start: "09:00", End: "12:00"}}},
			"Tuesday": {Enabled: true, Periods: []model.Period{{Start: "15:00", End: "17:00"}}},
		},
		BufferMinutes: 10,
	})
	st.PutService(model.Service{ID: "svc", LocationID: "loc", Name: "Maths", MaxStudents: 6})
	st.PutSession(model.Session{ID: "s1", LocationID: "loc", ServiceID: "svc", Date: "2026-03-03", Time: "15:00", TutorName: "Ms Lee"})
	rec := &recorder{}
	return &fixture{
		store:  st,
		events: rec,
		coord:  New(st, WithClock(func() time.Time { return now }), WithPublisher(rec)),
	}
}

func (f *fixture) sale(id, parent, membership string, children ...string) {
	s := model.Sale{ID: id, LocationID: "loc", ParentID: parent, MembershipID: membership,
		Status: model.SaleActive, ActivationDate: "2026-01-05"}
	for _, c := range children {
		s.Children = append(s.Children, model.Child{Name: c})
	}
	f.store.PutSale(s)
}

func (f *fixture) fill(sessionID string, n int) {
	for i := 0; i < n; i++ {
		f.store.Enrol(model.RosterEntry{SessionID: sessionID, ParentID: "other", ChildKey: fmt.Sprintf("kid-%d", i)})
	}
}

func sessionReq(parent, child string) SessionRequest {
	return SessionRequest{ParentID: parent, SessionID: "s1", Child: model.Child{Name: child, Grade: "Year 4"}}
}
