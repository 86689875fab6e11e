package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AuditLog appends one human-readable line per booking event to a file,
// by default logs/booking.log.  Alerts are also logged at error level.
type AuditLog struct {
	Path string
	Log  *slog.Logger

	mu sync.Mutex
}

// Handle implements Handler.
func (a *AuditLog) Handle(_ context.Context, queue string, body []byte) error {
	line, alert, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	if alert != nil && a.Log != nil {
		a.Log.Error("booking alert",
			"alert", true,
			"kind", alert.Kind,
			"session_id", alert.SessionID,
			"parent_id", alert.ParentID,
			"commit_key", alert.CommitKey,
			"detail", alert.Detail)
	}
	return a.append(line)
}

func (a *AuditLog) append(line string) error {
	path := a.Path
	if path == "" {
		path = filepath.Join("logs", "booking.log")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders a queue message as a single log line.  For the
// alerts queue the decoded alert is returned as well.
func FormatLine(queue string, body []byte) (string, *AlertEvent, error) {
	switch queue {
	case QueueBookingAlerts:
		var ev AlertEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", nil, fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] ALERT %s | session_id=%s | parent_id=%s | child=%q | commit_key=%s | booking_id=%s | %s\n",
			ev.RaisedAt, ev.Kind, ev.SessionID, ev.ParentID, ev.ChildKey, ev.CommitKey, ev.BookingID, ev.Detail)
		return line, &ev, nil
	case QueueBookingConfirmed, QueueBookingCancelled:
		var ev BookingEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", nil, fmt.Errorf("unmarshal: %w", err)
		}
		verb := "Booking confirmed"
		if queue == QueueBookingCancelled {
			verb = "Booking cancelled"
		}
		line := fmt.Sprintf("[%s] %s | booking_id=%s | parent_id=%s | location_id=%s | type=%s | when=%s %s-%s | children=[%s]",
			ev.OccurredAt, verb, ev.BookingID, ev.ParentID, ev.LocationID, ev.Type, ev.Date, ev.Time, ev.EndTime,
			strings.Join(ev.Children, ","))
		if ev.SessionID != "" {
			line += fmt.Sprintf(" | session_id=%s | service=%q", ev.SessionID, ev.ServiceName)
		}
		if ev.MembershipID != "" {
			line += " | membership=" + ev.MembershipID
		}
		return line + "\n", nil, nil
	}
	return "", nil, fmt.Errorf("unknown queue %q", queue)
}
