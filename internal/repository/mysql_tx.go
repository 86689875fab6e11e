package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// mysqlTx implements Tx.  Row locks taken with SELECT ... FOR UPDATE on
// the session and sale rows serialise concurrent bookers.
type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) LockSession(ctx context.Context, id string) (model.Session, error) {
	return getSession(ctx, t.tx, id, true)
}

func (t *mysqlTx) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, t.tx, id)
}

func (t *mysqlTx) Roster(ctx context.Context, sessionID string) ([]model.RosterEntry, error) {
	return listRoster(ctx, t.tx, sessionID)
}

func (t *mysqlTx) AddRosterEntry(ctx context.Context, e *model.RosterEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return insertRosterEntry(ctx, t.tx, e)
}

func (t *mysqlTx) LockSale(ctx context.Context, id string) (model.Sale, error) {
	return lockSale(ctx, t.tx, id)
}

func (t *mysqlTx) CreditEntries(ctx context.Context, saleID, since string) ([]model.CreditEntry, error) {
	return listCredit(ctx, t.tx, []string{saleID}, since)
}

func (t *mysqlTx) CreditByKey(ctx context.Context, key string) (model.CreditEntry, error) {
	return creditByKey(ctx, t.tx, key)
}

func (t *mysqlTx) AppendCredit(ctx context.Context, e *model.CreditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return appendCredit(ctx, t.tx, e)
}

func (t *mysqlTx) BookingByCommitKey(ctx context.Context, key string) (model.Booking, error) {
	return getBooking(ctx, t.tx, `commit_key = ?`, key)
}

func (t *mysqlTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return insertBooking(ctx, t.tx, b)
}
