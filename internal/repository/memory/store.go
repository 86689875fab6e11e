// Package memory is an in-process implementation of repository.Store.
// Transactions are serialised behind a single mutex and rolled back from
// a snapshot.  Faults can be injected per operation so that tests can
// reproduce storage failures in the middle of a compound write.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// Operation names accepted by FailNext.
const (
	OpAddRosterEntry = "AddRosterEntry"
	OpCreateBooking  = "CreateBooking"
	OpAppendCredit   = "AppendCredit"
	OpCancelBooking  = "CancelBooking"
	OpCommit         = "Commit"
	OpRead           = "Read"
)

// Store keeps every document in maps guarded by mu.
type Store struct {
	mu sync.Mutex

	locations map[string]model.Location
	services  map[string]model.Service
	sessions  map[string]model.Session
	roster    map[string][]model.RosterEntry
	sales     map[string]model.Sale
	credits   []model.CreditEntry
	bookings  map[string]model.Booking

	faults    map[string]error
	nonAtomic bool
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		locations: map[string]model.Location{},
		services:  map[string]model.Service{},
		sessions:  map[string]model.Session{},
		roster:    map[string][]model.RosterEntry{},
		sales:     map[string]model.Sale{},
		bookings:  map[string]model.Booking{},
		faults:    map[string]error{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.Store = (*Store)(nil)

// FailNext makes the next call of op return err.  For OpCommit the
// writes of the transaction are kept and the caller sees an unknown
// commit outcome, as when the acknowledgement of a commit is lost.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// SetNonAtomic disables rollback: writes made before a failure inside
// RunInTx stay visible and the error is reported as not rolled back.  A
// transaction that failed before writing anything is unaffected.
func (s *Store) SetNonAtomic(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonAtomic = v
}

// SetClock overrides the server timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// fault consumes an injected error for op.  Callers hold mu.
func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

// PutLocation seeds a location.
func (s *Store) PutLocation(l model.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.ID] = l
}

// PutService seeds a service definition.
func (s *Store) PutService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

// PutSession seeds a session.
func (s *Store) PutSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// PutSale seeds a membership.
func (s *Store) PutSale(sale model.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = sale
}

// PutCreditEntry seeds a ledger line.
func (s *Store) PutCreditEntry(e model.CreditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.credits = append(s.credits, e)
}

// PutBooking seeds a booking.
func (s *Store) PutBooking(b model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

// Enrol seeds a roster entry.
func (s *Store) Enrol(e model.RosterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.roster[e.SessionID] = append(s.roster[e.SessionID], e)
}

// RosterOf returns a copy of a session roster.
func (s *Store) RosterOf(sessionID string) []model.RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RosterEntry(nil), s.roster[sessionID]...)
}

// Credits returns a copy of the whole ledger.
func (s *Store) Credits() []model.CreditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CreditEntry(nil), s.credits...)
}

// Bookings returns every stored booking ordered by creation.
func (s *Store) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) read(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fault(OpRead)
}

func (s *Store) GetLocation(ctx context.Context, id string) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return model.Location{}, err
	}
	l, ok := s.locations[id]
	if !ok {
		return model.Location{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return model.Session{}, err
	}
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, locationID, date string) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	var out []model.Session
	for _, sess := range s.sessions {
		if sess.LocationID == locationID && sess.Date == date {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CountRosters(ctx context.Context, sessionIDs []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(sessionIDs))
	for _, id := range sessionIDs {
		if n := len(s.roster[id]); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (s *Store) GetServices(ctx context.Context, ids []string) (map[string]model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]model.Service, len(ids))
	for _, id := range ids {
		if svc, ok := s.services[id]; ok {
			out[id] = svc
		}
	}
	return out, nil
}

func (s *Store) ListSales(ctx context.Context, parentID, locationID string) ([]model.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	var out []model.Sale
	for _, sale := range s.sales {
		if sale.ParentID == parentID && sale.LocationID == locationID {
			out = append(out, sale)
		}
	}
	repository.SortSales(out)
	return out, nil
}

func (s *Store) ListCreditEntries(ctx context.Context, saleIDs []string, since string) ([]model.CreditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(saleIDs))
	for _, id := range saleIDs {
		want[id] = true
	}
	var out []model.CreditEntry
	for _, e := range s.credits {
		if want[e.SaleID] && e.WeekAnchor >= since {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return model.Booking{}, err
	}
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookingsByParent(ctx context.Context, parentID string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ParentID == parentID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.insertBooking(b)
}

// insertBooking enforces commit key uniqueness.  Callers hold mu.
func (s *Store) insertBooking(b *model.Booking) error {
	if err := s.fault(OpCreateBooking); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, ok := s.bookings[b.ID]; ok {
		return fmt.Errorf("%w: booking %s", repository.ErrDuplicate, b.ID)
	}
	if b.CommitKey != "" {
		for _, other := range s.bookings {
			if other.CommitKey == b.CommitKey {
				return fmt.Errorf("%w: commit key %s", repository.ErrDuplicate, b.CommitKey)
			}
		}
	}
	b.CreatedAt = s.now()
	s.bookings[b.ID] = *b
	return nil
}

func (s *Store) CancelBooking(ctx context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return model.Booking{}, err
	}
	if err := s.fault(OpCancelBooking); err != nil {
		return model.Booking{}, err
	}
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	if b.Status != model.BookingCancelled {
		at := s.now()
		b.Status = model.BookingCancelled
		b.CancelledAt = &at
		s.bookings[id] = b
	}
	return b, nil
}

// snapshot captures the collections a transaction can write to.
type snapshot struct {
	roster   map[string][]model.RosterEntry
	credits  []model.CreditEntry
	bookings map[string]model.Booking
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		roster:   make(map[string][]model.RosterEntry, len(s.roster)),
		credits:  append([]model.CreditEntry(nil), s.credits...),
		bookings: make(map[string]model.Booking, len(s.bookings)),
	}
	for k, v := range s.roster {
		snap.roster[k] = append([]model.RosterEntry(nil), v...)
	}
	for k, v := range s.bookings {
		snap.bookings[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.roster, s.credits, s.bookings = snap.roster, snap.credits, snap.bookings
}

// RunInTx holds the store lock for the whole of fn, which makes every
// transaction serialisable.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.snapshot()
	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		if s.nonAtomic && tx.dirty {
			return errors.Join(err, repository.ErrNotRolledBack)
		}
		s.restore(snap)
		return err
	}
	if err := s.fault(OpCommit); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrCommitUnknown, err)
	}
	return nil
}
