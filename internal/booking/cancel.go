package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/queue"
)

// CancelBooking cancels a parent's booking when it is at least
// MinCancelNotice away.  Cancelling twice succeeds without change.  The
// credit spent on a session booking is not restored and the roster entry
// is kept.
func (c *Coordinator) CancelBooking(ctx context.Context, parentID, bookingID string) (model.Booking, error) {
	ctx, at := newAttempt(ctx, "cancel_booking",
		slog.String("parent_id", parentID),
		slog.String("booking_id", bookingID))
	defer at.finish()
	if parentID == "" || bookingID == "" {
		return model.Booking{}, at.rejected(reject(KindValidation, "parent and booking id are required"))
	}

	ctx, cancel := c.bounded(ctx)
	defer cancel()

	b, err := c.store.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, at.rejected(fromStore(err, "booking"))
	}
	if b.ParentID != parentID {
		return model.Booking{}, at.rejected(reject(KindForbidden, "booking belongs to another parent"))
	}
	if b.Status == model.BookingCancelled {
		at.committed(b.ID)
		return b, nil
	}

	loc, zone, err := c.location(ctx, b.LocationID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return model.Booking{}, at.rejected(err)
		}
		zone = time.UTC
	}
	if !CanCancel(b, c.now(), zone) {
		e := reject(KindCancellationWindowExpired,
			fmt.Sprintf("bookings can only be cancelled at least %d hours before they start", int(MinCancelNotice.Hours())))
		e.Phone = loc.Phone
		return model.Booking{}, at.rejected(e)
	}
	at.validated()

	updated, err := c.store.CancelBooking(ctx, b.ID)
	if err != nil {
		return model.Booking{}, at.rejected(fromStore(err, "booking"))
	}
	at.committed(updated.ID)
	c.publish(ctx, queue.QueueBookingCancelled, queue.NewBookingEvent(updated, c.now()))
	return updated, nil
}
