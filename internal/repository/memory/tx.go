package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// memTx runs with the store lock already held.
type memTx struct {
	s     *Store
	dirty bool
}

var _ repository.Tx = (*memTx)(nil)

func (t *memTx) LockSession(ctx context.Context, id string) (model.Session, error) {
	if err := t.s.read(ctx); err != nil {
		return model.Session{}, err
	}
	sess, ok := t.s.sessions[id]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return sess, nil
}

func (t *memTx) GetService(ctx context.Context, id string) (model.Service, error) {
	if err := t.s.read(ctx); err != nil {
		return model.Service{}, err
	}
	svc, ok := t.s.services[id]
	if !ok {
		return model.Service{}, repository.ErrNotFound
	}
	return svc, nil
}

func (t *memTx) Roster(ctx context.Context, sessionID string) ([]model.RosterEntry, error) {
	if err := t.s.read(ctx); err != nil {
		return nil, err
	}
	return append([]model.RosterEntry(nil), t.s.roster[sessionID]...), nil
}

func (t *memTx) AddRosterEntry(ctx context.Context, e *model.RosterEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.s.fault(OpAddRosterEntry); err != nil {
		return err
	}
	for _, other := range t.s.roster[e.SessionID] {
		if other.ChildKey == e.ChildKey && other.ParentID == e.ParentID {
			return fmt.Errorf("%w: %s already on roster", repository.ErrDuplicate, e.ChildKey)
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = t.s.now()
	t.s.roster[e.SessionID] = append(t.s.roster[e.SessionID], *e)
	t.dirty = true
	return nil
}

func (t *memTx) LockSale(ctx context.Context, id string) (model.Sale, error) {
	if err := t.s.read(ctx); err != nil {
		return model.Sale{}, err
	}
	sale, ok := t.s.sales[id]
	if !ok {
		return model.Sale{}, repository.ErrNotFound
	}
	return sale, nil
}

func (t *memTx) CreditEntries(ctx context.Context, saleID, since string) ([]model.CreditEntry, error) {
	if err := t.s.read(ctx); err != nil {
		return nil, err
	}
	var out []model.CreditEntry
	for _, e := range t.s.credits {
		if e.SaleID == saleID && e.WeekAnchor >= since {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) CreditByKey(ctx context.Context, key string) (model.CreditEntry, error) {
	if err := t.s.read(ctx); err != nil {
		return model.CreditEntry{}, err
	}
	for _, e := range t.s.credits {
		if e.IdempotencyKey == key {
			return e, nil
		}
	}
	return model.CreditEntry{}, repository.ErrNotFound
}

func (t *memTx) AppendCredit(ctx context.Context, e *model.CreditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.s.fault(OpAppendCredit); err != nil {
		return err
	}
	for _, other := range t.s.credits {
		if other.IdempotencyKey == e.IdempotencyKey {
			return fmt.Errorf("%w: credit key %s", repository.ErrDuplicate, e.IdempotencyKey)
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = t.s.now()
	t.s.credits = append(t.s.credits, *e)
	t.dirty = true
	return nil
}

func (t *memTx) BookingByCommitKey(ctx context.Context, key string) (model.Booking, error) {
	if err := t.s.read(ctx); err != nil {
		return model.Booking{}, err
	}
	for _, b := range t.s.bookings {
		if b.CommitKey == key {
			return b, nil
		}
	}
	return model.Booking{}, repository.ErrNotFound
}

func (t *memTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.s.insertBooking(b); err != nil {
		return err
	}
	t.dirty = true
	return nil
}
