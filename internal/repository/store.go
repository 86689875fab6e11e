package repository

import (
	"context"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// Store is the document store the scheduling core reads from and writes
// to.  Every backend (MySQL, MongoDB and the in-memory store used by
// tests) implements it.  Methods return ErrNotFound for missing
// documents; timestamps such as CreatedAt and CancelledAt are assigned by
// the store.
type Store interface {
	GetLocation(ctx context.Context, id string) (model.Location, error)
	GetSession(ctx context.Context, id string) (model.Session, error)
	// ListSessions returns the sessions of a location on a date (YYYY-MM-DD)
	// in no particular order.
	ListSessions(ctx context.Context, locationID, date string) ([]model.Session, error)
	// CountRosters returns the roster size of each given session.  Sessions
	// without entries are absent from the map.
	CountRosters(ctx context.Context, sessionIDs []string) (map[string]int, error)
	GetServices(ctx context.Context, ids []string) (map[string]model.Service, error)
	// ListSales returns the parent's memberships at a location ordered by
	// activation date then id.
	ListSales(ctx context.Context, parentID, locationID string) ([]model.Sale, error)
	// ListCreditEntries returns ledger entries of the given sales whose
	// week anchor is on or after since (YYYY-MM-DD).
	ListCreditEntries(ctx context.Context, saleIDs []string, since string) ([]model.CreditEntry, error)

	GetBooking(ctx context.Context, id string) (model.Booking, error)
	ListBookingsByParent(ctx context.Context, parentID string) ([]model.Booking, error)
	// CreateBooking stores a standalone booking such as an assessment.  An
	// empty ID is assigned by the store.
	CreateBooking(ctx context.Context, b *model.Booking) error
	// CancelBooking moves a booking to cancelled and stamps CancelledAt.
	// Cancelling an already cancelled booking leaves it untouched and
	// returns it.
	CancelBooking(ctx context.Context, id string) (model.Booking, error)

	// RunInTx runs fn inside a transaction.  When fn returns an error every
	// write made through tx is discarded.  If that cannot be guaranteed the
	// returned error wraps ErrNotRolledBack; a commit whose outcome is not
	// known wraps ErrCommitUnknown.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view used by the booking coordinator for the
// compound session booking write.
type Tx interface {
	// LockSession reads a session and serialises later writers to its
	// roster until the transaction ends.
	LockSession(ctx context.Context, id string) (model.Session, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	Roster(ctx context.Context, sessionID string) ([]model.RosterEntry, error)
	// AddRosterEntry returns ErrDuplicate when the same child of the same
	// parent is already on the roster.
	AddRosterEntry(ctx context.Context, e *model.RosterEntry) error

	// LockSale reads a sale and serialises later credit writers for it.
	LockSale(ctx context.Context, id string) (model.Sale, error)
	CreditEntries(ctx context.Context, saleID, since string) ([]model.CreditEntry, error)
	// CreditByKey returns the ledger entry with the idempotency key, or
	// ErrNotFound.
	CreditByKey(ctx context.Context, idempotencyKey string) (model.CreditEntry, error)
	// AppendCredit returns ErrDuplicate when the idempotency key is taken.
	AppendCredit(ctx context.Context, e *model.CreditEntry) error

	BookingByCommitKey(ctx context.Context, key string) (model.Booking, error)
	// CreateBooking returns ErrDuplicate when the commit key is taken.
	CreateBooking(ctx context.Context, b *model.Booking) error
}
