// Package queue defines message payloads exchanged over the message broker
// and the consumer that writes them to the booking audit log.
package queue

import (
	"context"
	"time"

	"github.com/iliyamo/tutoring-scheduler/internal/model"
)

// Queue names.  Each queue is durable and bound to the default exchange,
// so the routing key is the queue name.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
	QueueBookingAlerts    = "booking.alerts"
)

// Queues lists every queue the service publishes to.
var Queues = []string{QueueBookingConfirmed, QueueBookingCancelled, QueueBookingAlerts}

// Publisher sends a payload to a queue.  Implementations must not block
// the caller for longer than ctx allows.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// NopPublisher drops every event.  It is used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// BookingEvent is published when a booking is confirmed or cancelled.  It
// contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary store.
type BookingEvent struct {
	BookingID    string   `json:"booking_id"`
	ParentID     string   `json:"parent_id"`
	LocationID   string   `json:"location_id"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	EndTime      string   `json:"end_time"`
	Children     []string `json:"children"`
	SessionID    string   `json:"session_id,omitempty"`
	ServiceName  string   `json:"service_name,omitempty"`
	MembershipID string   `json:"membership_id,omitempty"`
	Replayed     bool     `json:"replayed,omitempty"`
	OccurredAt   string   `json:"occurred_at"`
}

// NewBookingEvent builds the payload for b at the given instant.
func NewBookingEvent(b model.Booking, at time.Time) BookingEvent {
	names := make([]string, 0, len(b.Children))
	for _, c := range b.Children {
		names = append(names, c.Name)
	}
	return BookingEvent{
		BookingID:    b.ID,
		ParentID:     b.ParentID,
		LocationID:   b.LocationID,
		Type:         string(b.Type),
		Status:       string(b.Status),
		Date:         b.Date,
		Time:         b.Time,
		EndTime:      b.EndTime(),
		Children:     names,
		SessionID:    b.SessionID,
		ServiceName:  b.ServiceName,
		MembershipID: b.MembershipID,
		OccurredAt:   at.UTC().Format(time.RFC3339),
	}
}

// AlertEvent reports a compound booking write that needs operator
// attention.  Kind is "partial_commit" when a failed write could not be
// rolled back and "reconciled" when a later retry completed it.
type AlertEvent struct {
	Kind      string `json:"kind"`
	SessionID string `json:"session_id"`
	ChildKey  string `json:"child_key"`
	CommitKey string `json:"commit_key"`
	ParentID  string `json:"parent_id"`
	BookingID string `json:"booking_id,omitempty"`
	Detail    string `json:"detail"`
	RaisedAt  string `json:"raised_at"`
}

// Alert kinds.
const (
	AlertPartialCommit = "partial_commit"
	AlertReconciled    = "reconciled"
)
