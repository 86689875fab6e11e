package booking

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/tutoring-scheduler/internal/logger"
	"github.com/iliyamo/tutoring-scheduler/internal/telemetry"
)

// State is the position of a booking attempt in its lifecycle:
// Requested, then Validated, then either Committed or Rejected.
type State string

const (
	StateRequested State = "requested"
	StateValidated State = "validated"
	StateCommitted State = "committed"
	StateRejected  State = "rejected"
)

var tracer = telemetry.Tracer("booking")

// attempt tracks, logs and traces one booking attempt.  Callers must
// defer finish.
type attempt struct {
	log   *slog.Logger
	span  trace.Span
	state State
}

func newAttempt(ctx context.Context, op string, attrs ...slog.Attr) (context.Context, *attempt) {
	ctx, span := tracer.Start(ctx, "booking."+op)
	args := []any{slog.String("op", op)}
	for _, attr := range attrs {
		args = append(args, attr)
		span.SetAttributes(attribute.String(attr.Key, attr.Value.String()))
	}
	a := &attempt{log: logger.FromContext(ctx).With(args...), span: span}
	a.to(StateRequested)
	return ctx, a
}

func (a *attempt) to(s State) {
	a.state = s
	a.span.AddEvent(string(s))
	a.log.Debug("booking attempt", slog.String("state", string(s)))
}

func (a *attempt) finish() { a.span.End() }

func (a *attempt) validated() { a.to(StateValidated) }

func (a *attempt) committed(bookingID string) {
	a.state = StateCommitted
	a.span.SetAttributes(attribute.String("booking_id", bookingID))
	a.span.SetStatus(codes.Ok, "")
	a.log.Debug("booking attempt",
		slog.String("state", string(StateCommitted)),
		slog.String("booking_id", bookingID))
}

// rejected records the failure at a level matching its kind and returns
// err unchanged.
func (a *attempt) rejected(err error) error {
	a.state = StateRejected
	a.span.SetAttributes(attribute.String("kind", string(KindOf(err))))
	a.span.SetStatus(codes.Error, err.Error())
	switch KindOf(err) {
	case KindPartialCommit:
		a.log.Error("booking attempt left a partial commit",
			slog.String("state", string(StateRejected)),
			slog.Bool("alert", true),
			slog.String("error", err.Error()))
	case KindTransientStorage, KindOutcomeUnknown:
		a.log.Warn("booking attempt failed in storage",
			slog.String("state", string(StateRejected)),
			slog.String("error", err.Error()))
	default:
		a.log.Info("booking attempt rejected",
			slog.String("state", string(StateRejected)),
			slog.String("kind", string(KindOf(err))),
			slog.String("error", err.Error()))
	}
	return err
}
