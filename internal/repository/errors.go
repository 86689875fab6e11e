// Package repository defines the persistence contract of the scheduling
// core and the error values shared by every backend.  These sentinel
// values allow higher layers such as the booking coordinator and the
// handlers to distinguish between different failure scenarios.  For
// example, ErrDuplicate tells the coordinator that a child is already on
// a roster, while ErrNotRolledBack signals that a failed compound write
// may have left some of its effects behind.
package repository

import "errors"

// ErrNotFound is returned when a looked-up document does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness rule:
// the same child twice on a roster, a ledger entry or booking with an
// idempotency key that is already used.
var ErrDuplicate = errors.New("duplicate")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write lost a race against a concurrent
// writer and the transaction was aborted.  The operation is safe to retry.
var ErrConflict = errors.New("conflict")

// ErrNotRolledBack is joined to a transaction error when the rollback
// itself failed, so some writes may have become visible.
var ErrNotRolledBack = errors.New("transaction not rolled back")

// ErrCommitUnknown is returned when a commit was sent but its outcome
// could not be observed.
var ErrCommitUnknown = errors.New("commit outcome unknown")
