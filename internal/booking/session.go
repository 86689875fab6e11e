package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/catalog"
	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/logger"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/queue"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// SessionRequest enrols one child into a scheduled session.  RequestKey is
// an optional client idempotency key; retrying with the same key returns
// the stored booking.
type SessionRequest struct {
	ParentID   string      `json:"-" validate:"required"`
	SessionID  string      `json:"sessionId" validate:"required"`
	Child      model.Child `json:"child"`
	RequestKey string      `json:"-" validate:"max=128"`
}

// SessionConfirmation adds the credit position after the booking.
type SessionConfirmation struct {
	Confirmation
	Credit     credit.Status `json:"credit"`
	Reconciled bool          `json:"reconciled,omitempty"`
}

// BookSession validates and commits a session booking.  Inside one
// transaction it locks the session, checks the roster and capacity, locks
// the selected membership and rechecks its credit, then writes the roster
// entry, the booking and the ledger entry.  The ledger entry and the
// booking are keyed by CommitKey, so a retry after a failure cannot enrol
// or charge twice.  A roster entry left without its booking by an earlier
// failed attempt is completed here and reported as reconciled, provided the
// membership still has a credit to pay for it.
func (c *Coordinator) BookSession(ctx context.Context, req SessionRequest) (SessionConfirmation, error) {
	ctx, at := newAttempt(ctx, "book_session",
		slog.String("parent_id", req.ParentID),
		slog.String("session_id", req.SessionID))
	defer at.finish()
	if err := c.validate.Struct(req); err != nil {
		return SessionConfirmation{}, at.rejected(fromValidation(err))
	}

	ctx, cancel := c.bounded(ctx)
	defer cancel()

	sess, err := c.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return SessionConfirmation{}, at.rejected(fromStore(err, "session"))
	}
	_, zone, err := c.location(ctx, sess.LocationID)
	if err != nil {
		return SessionConfirmation{}, at.rejected(err)
	}
	now := c.now()
	if start, err := model.StartsAt(sess.Date, sess.Time, zone); err != nil || !start.After(now) {
		return SessionConfirmation{}, at.rejected(reject(KindValidation, "session has already started"))
	}
	today := model.Today(now, zone)
	childKey := model.ChildKey(req.Child.Name)
	commitKey := CommitKey(sess.ID, req.ParentID, childKey)

	status, err := c.evaluate(ctx, req.ParentID, sess.LocationID, req.Child.Name, today)
	if err != nil {
		return SessionConfirmation{}, at.rejected(err)
	}
	at.validated()

	var conf SessionConfirmation
	err = c.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		conf = SessionConfirmation{Credit: status}

		locked, err := tx.LockSession(ctx, sess.ID)
		if err != nil {
			return err
		}
		svc, err := tx.GetService(ctx, locked.ServiceID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		roster, err := tx.Roster(ctx, locked.ID)
		if err != nil {
			return err
		}
		view := catalog.Compose(locked, svc, len(roster))

		entry, enrolled := findEnrolment(roster, req.ParentID, childKey)
		if enrolled {
			existing, err := tx.BookingByCommitKey(ctx, commitKey)
			switch {
			case err == nil:
				owed, err := c.chargeMissing(ctx, tx, existing, childKey, zone)
				if err != nil {
					return err
				}
				if owed || (req.RequestKey != "" && existing.RequestKey == req.RequestKey) {
					conf.Booking, conf.Replayed, conf.Reconciled = existing, true, owed
					return nil
				}
				return reject(KindDuplicateBooking, "child is already booked into this session")
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
			conf.Reconciled = true
		}

		if !conf.Reconciled {
			if view.Full {
				return reject(KindCapacityExceeded, "session full")
			}
			if err := checkCredit(status); err != nil {
				return err
			}
			if !catalog.Accepts(view, status.MembershipID) {
				e := reject(KindMembershipMismatch, "membership does not cover this session type")
				e.SaleID, e.MembershipID = status.SaleID, status.MembershipID
				return e
			}
			if !status.Unlimited {
				rechecked, err := c.recheck(ctx, tx, req.Child.Name, status.SaleID, today)
				if err != nil {
					return err
				}
				conf.Credit = rechecked
			}

			entry = model.RosterEntry{
				SessionID: locked.ID,
				ChildKey:  childKey,
				ChildName: req.Child.Name,
				Grade:     req.Child.Grade,
				ParentID:  req.ParentID,
				CommitKey: commitKey,
			}
			if err := tx.AddRosterEntry(ctx, &entry); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return reject(KindDuplicateBooking, "child is already booked into this session")
				}
				return err
			}
		}

		charge, paid, err := c.pendingCharge(ctx, tx, commitKey, conf.Credit)
		if err != nil {
			return err
		}
		if charge && conf.Reconciled {
			rechecked, err := c.recheck(ctx, tx, req.Child.Name, conf.Credit.SaleID, today)
			if err != nil {
				if k := KindOf(err); k == KindInsufficientCredit || k == KindMembershipRequired {
					return &Error{Kind: KindPartialCommit, Reason: "roster entry without booking and no credit left to complete it", Err: err}
				}
				return err
			}
			conf.Credit = rechecked
		}
		if paid.SaleID != "" {
			conf.Credit.SaleID = paid.SaleID
		}

		b := model.Booking{
			LocationID:       locked.LocationID,
			ParentID:         req.ParentID,
			Type:             model.BookingSession,
			Date:             locked.Date,
			Time:             locked.Time,
			Duration:         view.Duration,
			Children:         []model.Child{{Name: req.Child.Name, Grade: req.Child.Grade}},
			Status:           model.BookingConfirmed,
			ServiceName:      view.ServiceName,
			TutorName:        locked.TutorName,
			SessionID:        locked.ID,
			SessionBookingID: entry.ID,
			CommitKey:        commitKey,
			RequestKey:       req.RequestKey,
			SaleID:           conf.Credit.SaleID,
			MembershipID:     conf.Credit.MembershipID,
		}
		if err := tx.CreateBooking(ctx, &b); err != nil {
			return err
		}
		conf.Booking = b

		if charge {
			e := model.CreditEntry{
				SaleID:         conf.Credit.SaleID,
				ChildKey:       childKey,
				WeekAnchor:     model.FormatDate(today),
				Delta:          1,
				IdempotencyKey: commitKey,
			}
			if err := tx.AppendCredit(ctx, &e); err != nil {
				return err
			}
			conf.Credit.Remaining = max(conf.Credit.Remaining-1, 0)
			if conf.Credit.Remaining == 0 {
				conf.Credit.Allowed = false
				conf.Credit.Reason = credit.ReasonNoCredits
			}
		}
		return nil
	})
	if err != nil {
		err = fromStore(err, "session")
		if KindOf(err) == KindPartialCommit {
			c.alert(ctx, queue.AlertPartialCommit, sess.ID, req.ParentID, childKey, commitKey, "", err.Error())
		}
		return SessionConfirmation{}, at.rejected(err)
	}

	conf.EndTime = conf.Booking.EndTime()
	at.committed(conf.Booking.ID)
	if conf.Reconciled {
		logger.FromContext(ctx).Error("partial commit reconciled",
			slog.Bool("alert", true),
			slog.String("commit_key", commitKey),
			slog.String("booking_id", conf.Booking.ID))
		c.alert(ctx, queue.AlertReconciled, sess.ID, req.ParentID, childKey, commitKey, conf.Booking.ID,
			"roster entry without booking completed by retry")
	}
	if !conf.Replayed {
		c.publish(ctx, queue.QueueBookingConfirmed, queue.NewBookingEvent(conf.Booking, c.now()))
	}
	return conf, nil
}

func findEnrolment(roster []model.RosterEntry, parentID, childKey string) (model.RosterEntry, bool) {
	for _, e := range roster {
		if e.ParentID == parentID && e.ChildKey == childKey {
			return e, true
		}
	}
	return model.RosterEntry{}, false
}

// checkCredit turns a negative credit evaluation into a rejection.  A
// child without any applicable membership is sent to the purchase flow.
func checkCredit(st credit.Status) error {
	switch {
	case !st.HasMembership():
		return reject(KindMembershipRequired, st.Reason)
	case !st.Allowed:
		e := reject(KindInsufficientCredit, st.Reason)
		e.SaleID, e.MembershipID = st.SaleID, st.MembershipID
		return e
	}
	return nil
}

// recheck re-evaluates the selected sale under its row lock so that two
// concurrent bookings for the same family cannot both spend the last
// credit.
func (c *Coordinator) recheck(ctx context.Context, tx repository.Tx, child, saleID string, today time.Time) (credit.Status, error) {
	sale, err := tx.LockSale(ctx, saleID)
	if err != nil {
		return credit.Status{}, err
	}
	entries, err := tx.CreditEntries(ctx, sale.ID, model.FormatDate(credit.WindowStart(today)))
	if err != nil {
		return credit.Status{}, err
	}
	st := c.ledger.Evaluate(child, []model.Sale{sale}, entries, today)
	if err := checkCredit(st); err != nil {
		return credit.Status{}, err
	}
	return st, nil
}

// pendingCharge reports whether the booking still has to be charged.  A
// ledger entry with the commit key means an earlier attempt already paid;
// it is returned as paid.
func (c *Coordinator) pendingCharge(ctx context.Context, tx repository.Tx, commitKey string, st credit.Status) (bool, model.CreditEntry, error) {
	paid, err := tx.CreditByKey(ctx, commitKey)
	switch {
	case err == nil:
		return false, paid, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, model.CreditEntry{}, err
	}
	return !st.Unlimited && st.SaleID != "", model.CreditEntry{}, nil
}

// chargeMissing completes the ledger entry of a committed booking whose
// credit write was lost.  The entry is anchored on the day the booking was
// made.
func (c *Coordinator) chargeMissing(ctx context.Context, tx repository.Tx, b model.Booking, childKey string, zone *time.Location) (bool, error) {
	if b.SaleID == "" || c.ledger.Catalog().Quota(b.MembershipID).Unlimited {
		return false, nil
	}
	_, err := tx.CreditByKey(ctx, b.CommitKey)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}
	e := model.CreditEntry{
		SaleID:         b.SaleID,
		ChildKey:       childKey,
		WeekAnchor:     model.FormatDate(model.Today(b.CreatedAt, zone)),
		Delta:          1,
		IdempotencyKey: b.CommitKey,
	}
	if err := tx.AppendCredit(ctx, &e); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Coordinator) alert(ctx context.Context, kind, sessionID, parentID, childKey, commitKey, bookingID, detail string) {
	c.publish(ctx, queue.QueueBookingAlerts, queue.AlertEvent{
		Kind:      kind,
		SessionID: sessionID,
		ChildKey:  childKey,
		CommitKey: commitKey,
		ParentID:  parentID,
		BookingID: bookingID,
		Detail:    detail,
		RaisedAt:  c.now().UTC().Format(time.RFC3339),
	})
}
