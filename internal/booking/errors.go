package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// Kind classifies why a booking operation did not succeed.
type Kind string

const (
	KindValidation                Kind = "validation"
	KindNotFound                  Kind = "not_found"
	KindForbidden                 Kind = "forbidden"
	KindCapacityExceeded          Kind = "capacity_exceeded"
	KindInsufficientCredit        Kind = "insufficient_credit"
	KindMembershipRequired        Kind = "membership_required"
	KindMembershipMismatch        Kind = "membership_mismatch"
	KindDuplicateBooking          Kind = "duplicate_booking"
	KindCancellationWindowExpired Kind = "cancellation_window_expired"
	KindTransientStorage          Kind = "transient_storage"
	KindOutcomeUnknown            Kind = "outcome_unknown"
	KindPartialCommit             Kind = "partial_commit_detected"
)

// Error is the typed outcome of a rejected or failed operation.  Business
// rejections carry enough detail for the caller to render guidance: the
// centre phone number for a refused cancellation, the membership that ran
// out of credit.
type Error struct {
	Kind         Kind
	Reason       string
	Phone        string
	SaleID       string
	MembershipID string
	Err          error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the Err* values below can be
// used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports whether the caller may retry with the same idempotency
// key straight away.  An unknown outcome should be checked through
// ListBookings first.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransientStorage
}

// Sentinels for errors.Is.
var (
	ErrValidation                = &Error{Kind: KindValidation}
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrForbidden                 = &Error{Kind: KindForbidden}
	ErrCapacityExceeded          = &Error{Kind: KindCapacityExceeded}
	ErrInsufficientCredit        = &Error{Kind: KindInsufficientCredit}
	ErrMembershipRequired        = &Error{Kind: KindMembershipRequired}
	ErrMembershipMismatch        = &Error{Kind: KindMembershipMismatch}
	ErrDuplicateBooking          = &Error{Kind: KindDuplicateBooking}
	ErrCancellationWindowExpired = &Error{Kind: KindCancellationWindowExpired}
	ErrTransientStorage          = &Error{Kind: KindTransientStorage}
	ErrOutcomeUnknown            = &Error{Kind: KindOutcomeUnknown}
	ErrPartialCommit             = &Error{Kind: KindPartialCommit}
)

func reject(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// fromStore classifies an error returned by the store.  Typed errors raised
// inside a transaction pass through unchanged.
func fromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.Is(err, repository.ErrNotRolledBack):
		return &Error{Kind: KindPartialCommit, Reason: "compound write failed and was not rolled back", Err: err}
	case errors.As(err, &e):
		return e
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Reason: what + " not found"}
	case errors.Is(err, repository.ErrCommitUnknown), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindOutcomeUnknown, Reason: "storage did not confirm the write; check booking status before retrying", Err: err}
	}
	return &Error{Kind: KindTransientStorage, Reason: "storage unavailable", Err: err}
}

// fromValidation turns validator output into a single validation error.
func fromValidation(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return &Error{Kind: KindValidation, Reason: err.Error()}
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return &Error{Kind: KindValidation, Reason: strings.Join(parts, "; ")}
}
