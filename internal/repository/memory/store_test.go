package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

var errBoom = errors.New("boom")

func seeded() *Store {
	s := New()
	s.PutSession(model.Session{ID: "s1", LocationID: "loc", Date: "2026-03-02", Time: "15:00"})
	return s
}

func enrolAndBook(ctx context.Context, tx repository.Tx) error {
	if err := tx.AddRosterEntry(ctx, &model.RosterEntry{SessionID: "s1", ParentID: "p1", ChildKey: "ava"}); err != nil {
		return err
	}
	return tx.CreateBooking(ctx, &model.Booking{ParentID: "p1", CommitKey: "s1|ava"})
}

func TestRunInTxRollsBack(t *testing.T) {
	t.Parallel()
	s := seeded()
	s.FailNext(OpCreateBooking, errBoom)

	err := s.RunInTx(context.Background(), enrolAndBook)
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, repository.ErrNotRolledBack)
	assert.Empty(t, s.RosterOf("s1"))
	assert.Empty(t, s.Bookings())
}

func TestRunInTxNonAtomicLeavesPartialWrites(t *testing.T) {
	t.Parallel()
	s := seeded()
	s.SetNonAtomic(true)
	s.FailNext(OpCreateBooking, errBoom)

	err := s.RunInTx(context.Background(), enrolAndBook)
	require.ErrorIs(t, err, repository.ErrNotRolledBack)
	assert.Len(t, s.RosterOf("s1"), 1)
	assert.Empty(t, s.Bookings())
}

func TestRunInTxCommitFaultKeepsWrites(t *testing.T) {
	t.Parallel()
	s := seeded()
	s.FailNext(OpCommit, errBoom)

	err := s.RunInTx(context.Background(), enrolAndBook)
	require.ErrorIs(t, err, repository.ErrCommitUnknown)
	assert.Len(t, s.RosterOf("s1"), 1)
	assert.Len(t, s.Bookings(), 1)
}

func TestUniqueness(t *testing.T) {
	t.Parallel()
	s := seeded()
	ctx := context.Background()
	require.NoError(t, s.RunInTx(ctx, enrolAndBook))

	err := s.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.AddRosterEntry(ctx, &model.RosterEntry{SessionID: "s1", ParentID: "p1", ChildKey: "ava"})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = s.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.AppendCredit(ctx, &model.CreditEntry{IdempotencyKey: "k"}); err != nil {
			return err
		}
		return tx.AppendCredit(ctx, &model.CreditEntry{IdempotencyKey: "k"})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Empty(t, s.Credits())
}

func TestCancelBookingIsIdempotent(t *testing.T) {
	t.Parallel()
	s := New()
	s.PutBooking(model.Booking{ID: "b1", Status: model.BookingConfirmed})
	ctx := context.Background()

	first, err := s.CancelBooking(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, first.CancelledAt)

	second, err := s.CancelBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, *first.CancelledAt, *second.CancelledAt)

	_, err = s.CancelBooking(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListSalesOrder(t *testing.T) {
	t.Parallel()
	s := New()
	s.PutSale(model.Sale{ID: "c", ParentID: "p", LocationID: "l"})
	s.PutSale(model.Sale{ID: "b", ParentID: "p", LocationID: "l", ActivationDate: "2026-02-01"})
	s.PutSale(model.Sale{ID: "a", ParentID: "p", LocationID: "l", ActivationDate: "2026-02-01"})
	s.PutSale(model.Sale{ID: "z", ParentID: "p", LocationID: "l", ActivationDate: "2026-01-01"})
	s.PutSale(model.Sale{ID: "x", ParentID: "other", LocationID: "l", ActivationDate: "2026-01-01"})

	sales, err := s.ListSales(context.Background(), "p", "l")
	require.NoError(t, err)
	var ids []string
	for _, sale := range sales {
		ids = append(ids, sale.ID)
	}
	assert.Equal(t, []string{"z", "a", "b", "c"}, ids)
}

func TestLoadFixtures(t *testing.T) {
	t.Parallel()
	s := New()
	doc := `{"locations":[{"id":"loc","name":"Centre","schedule":{"Monday":{"enabled":true,"periods":[{"start":"09:00","end":"10:00"}]}}}],
	         "sessions":[{"id":"s1","locationId":"loc","date":"2026-03-02","time":"15:00"}]}`
	require.NoError(t, s.Load(strings.NewReader(doc)))

	loc, err := s.GetLocation(context.Background(), "loc")
	require.NoError(t, err)
	assert.True(t, loc.Schedule["Monday"].Enabled)

	sessions, err := s.ListSessions(context.Background(), "loc", "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
