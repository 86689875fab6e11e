package model

import "time"

// BookingType distinguishes free assessments from tutoring sessions and
// occurrences of a standing weekly booking.
type BookingType string

const (
	BookingAssessment BookingType = "assessment"
	BookingSession    BookingType = "session"
	BookingRecurring  BookingType = "recurring"
)

// BookingStatus is either confirmed or cancelled.  Bookings are never
// hard-deleted.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is the parent-facing record of a reservation.
//
// Fields:
//
//	SessionID/SessionBookingID – set for session bookings; the latter is the roster entry id.
//	CommitKey                  – (session, child) key of the compound write; unique.
//	RequestKey                 – client idempotency key supplied with the request, if any.
//	SaleID/MembershipID        – membership charged for a session booking.
//	RecurringGroupID           – links occurrences of the same standing booking.
type Booking struct {
	ID               string        `json:"id" bson:"_id"`
	LocationID       string        `json:"locationId" bson:"locationId"`
	ParentID         string        `json:"parentId" bson:"parentId"`
	Type             BookingType   `json:"type" bson:"type"`
	Date             string        `json:"date" bson:"date"` // YYYY-MM-DD
	Time             string        `json:"time" bson:"time"` // HH:MM
	Duration         int           `json:"duration" bson:"duration"`
	Children         []Child       `json:"children" bson:"children"`
	Status           BookingStatus `json:"status" bson:"status"`
	ServiceName      string        `json:"serviceName,omitempty" bson:"serviceName,omitempty"`
	TutorName        string        `json:"tutorName,omitempty" bson:"tutorName,omitempty"`
	RecurringGroupID string        `json:"recurringGroupId,omitempty" bson:"recurringGroupId,omitempty"`
	SessionID        string        `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	SessionBookingID string        `json:"sessionBookingId,omitempty" bson:"sessionBookingId,omitempty"`
	CommitKey        string        `json:"-" bson:"commitKey,omitempty"`
	RequestKey       string        `json:"-" bson:"requestKey,omitempty"`
	SaleID           string        `json:"saleId,omitempty" bson:"saleId,omitempty"`
	MembershipID     string        `json:"membershipId,omitempty" bson:"membershipId,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
	CancelledAt      *time.Time    `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
}

// EndTime returns the wall-clock end of the booking, or "" when Time is
// malformed.
func (b Booking) EndTime() string {
	d := b.Duration
	if d <= 0 {
		d = DefaultSessionMinutes
	}
	return AddMinutes(b.Time, d)
}
