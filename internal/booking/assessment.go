package booking

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/queue"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
	"github.com/iliyamo/tutoring-scheduler/internal/schedule"
)

// AssessmentRequest books a free assessment into a generated slot.
// RequestKey is an optional client idempotency key.
type AssessmentRequest struct {
	ParentID   string        `json:"-" validate:"required"`
	LocationID string        `json:"locationId" validate:"required"`
	Date       string        `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string        `json:"time" validate:"required,datetime=15:04"`
	Children   []model.Child `json:"children" validate:"required,min=1,max=6,dive"`
	RequestKey string        `json:"-" validate:"max=128"`
}

// Confirmation is returned for a committed booking.  Replayed is set when
// the request repeated an earlier one and the stored booking was returned
// instead of writing again.
type Confirmation struct {
	Booking  model.Booking `json:"booking"`
	EndTime  string        `json:"endTime"`
	Replayed bool          `json:"replayed"`
}

// BookAssessment creates a confirmed assessment booking.  No credit is
// consumed.  The time must be one of the slots the centre offers on that
// date and must not have started yet.
func (c *Coordinator) BookAssessment(ctx context.Context, req AssessmentRequest) (Confirmation, error) {
	ctx, at := newAttempt(ctx, "book_assessment",
		slog.String("parent_id", req.ParentID),
		slog.String("location_id", req.LocationID),
		slog.String("date", req.Date),
		slog.String("time", req.Time))
	defer at.finish()
	if err := c.validate.Struct(req); err != nil {
		return Confirmation{}, at.rejected(fromValidation(err))
	}

	ctx, cancel := c.bounded(ctx)
	defer cancel()

	loc, zone, err := c.location(ctx, req.LocationID)
	if err != nil {
		return Confirmation{}, at.rejected(err)
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		return Confirmation{}, at.rejected(reject(KindValidation, "date is not a calendar day"))
	}
	slots := schedule.Slots(loc.Schedule, day, model.DefaultSessionMinutes, loc.BufferMinutes)
	if !slices.Contains(slots, req.Time) {
		return Confirmation{}, at.rejected(reject(KindValidation, "time is not an available assessment slot"))
	}
	start, err := model.StartsAt(req.Date, req.Time, zone)
	if err != nil || !start.After(c.now()) {
		return Confirmation{}, at.rejected(reject(KindValidation, "slot has already started"))
	}
	at.validated()

	b := model.Booking{
		LocationID: req.LocationID,
		ParentID:   req.ParentID,
		Type:       model.BookingAssessment,
		Date:       req.Date,
		Time:       req.Time,
		Duration:   model.DefaultSessionMinutes,
		Children:   req.Children,
		Status:     model.BookingConfirmed,
		RequestKey: req.RequestKey,
	}

	var conf Confirmation
	if req.RequestKey == "" {
		if err := c.store.CreateBooking(ctx, &b); err != nil {
			return Confirmation{}, at.rejected(fromStore(err, "booking"))
		}
		conf = Confirmation{Booking: b}
	} else {
		b.CommitKey = AssessmentCommitKey(req.ParentID, req.RequestKey)
		err := c.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			existing, err := tx.BookingByCommitKey(ctx, b.CommitKey)
			switch {
			case err == nil:
				conf = Confirmation{Booking: existing, Replayed: true}
				return nil
			case !errors.Is(err, repository.ErrNotFound):
				return err
			}
			if err := tx.CreateBooking(ctx, &b); err != nil {
				return err
			}
			conf = Confirmation{Booking: b}
			return nil
		})
		if err != nil {
			return Confirmation{}, at.rejected(fromStore(err, "booking"))
		}
	}
	conf.EndTime = conf.Booking.EndTime()
	at.committed(conf.Booking.ID)
	if !conf.Replayed {
		c.publish(ctx, queue.QueueBookingConfirmed, queue.NewBookingEvent(conf.Booking, c.now()))
	}
	return conf, nil
}

// AssessmentCommitKey scopes a client idempotency key to its parent.
func AssessmentCommitKey(parentID, requestKey string) string {
	return "assessment|" + parentID + "|" + requestKey
}

// CommitKey identifies the compound write that enrols a child into a
// session.  Retries of the same booking share it.
func CommitKey(sessionID, parentID, childKey string) string {
	return "session|" + sessionID + "|" + parentID + "|" + childKey
}
