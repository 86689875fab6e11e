package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

const bookingColumns = `id, location_id, parent_id, type, date, time, duration, children, status,
	service_name, tutor_name, recurring_group_id, session_id, session_booking_id,
	commit_key, request_key, sale_id, membership_id, created_at, cancelled_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b                                    model.Booking
		children                             []byte
		commitKey, requestKey, recurringID   sql.NullString
		sessionID, sessionBookingID, saleID  sql.NullString
		membershipID, serviceName, tutorName sql.NullString
		cancelledAt                          sql.NullTime
	)
	err := row.Scan(&b.ID, &b.LocationID, &b.ParentID, &b.Type, &b.Date, &b.Time, &b.Duration, &children, &b.Status,
		&serviceName, &tutorName, &recurringID, &sessionID, &sessionBookingID,
		&commitKey, &requestKey, &saleID, &membershipID, &b.CreatedAt, &cancelledAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.ServiceName, b.TutorName = serviceName.String, tutorName.String
	b.RecurringGroupID = recurringID.String
	b.SessionID, b.SessionBookingID = sessionID.String, sessionBookingID.String
	b.CommitKey, b.RequestKey = commitKey.String, requestKey.String
	b.SaleID, b.MembershipID = saleID.String, membershipID.String
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	if err := jsonColumn(children, &b.Children); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func nullable(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func getBooking(ctx context.Context, q querier, where string, arg any) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where, arg))
	return b, mapErr(err)
}

func insertBooking(ctx context.Context, q querier, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	children, err := json.Marshal(b.Children)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO bookings (id, location_id, parent_id, type, date, time, duration, children, status,
		service_name, tutor_name, recurring_group_id, session_id, session_booking_id,
		commit_key, request_key, sale_id, membership_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(6))`
	_, err = q.ExecContext(ctx, ins, b.ID, b.LocationID, b.ParentID, b.Type, b.Date, b.Time, b.Duration, children, b.Status,
		nullable(b.ServiceName), nullable(b.TutorName), nullable(b.RecurringGroupID), nullable(b.SessionID), nullable(b.SessionBookingID),
		nullable(b.CommitKey), nullable(b.RequestKey), nullable(b.SaleID), nullable(b.MembershipID))
	if err != nil {
		return mapErr(err)
	}
	return mapErr(q.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt))
}

// GetBooking returns one booking by id.
func (s *MySQLStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, s.db, `id = ?`, id)
}

// ListBookingsByParent returns every booking of a parent, cancelled ones
// included, newest first.
func (s *MySQLStore) ListBookingsByParent(ctx context.Context, parentID string) ([]model.Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE parent_id = ? ORDER BY date DESC, time DESC, id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateBooking inserts a standalone booking.
func (s *MySQLStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	return insertBooking(ctx, s.db, b)
}

// CancelBooking flips status to cancelled.  The WHERE clause keeps an
// already cancelled row, and its original timestamp, untouched.
func (s *MySQLStore) CancelBooking(ctx context.Context, id string) (model.Booking, error) {
	const q = `UPDATE bookings SET status = ?, cancelled_at = UTC_TIMESTAMP(6) WHERE id = ? AND status <> ?`
	if _, err := s.db.ExecContext(ctx, q, model.BookingCancelled, id, model.BookingCancelled); err != nil {
		return model.Booking{}, mapErr(err)
	}
	return s.GetBooking(ctx, id)
}
