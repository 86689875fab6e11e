// Package booking validates and commits bookings.  It owns the compound
// session booking write (roster entry, booking record, credit deduction),
// the cancellation guard and the grouped view of a parent's bookings.
package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/tutoring-scheduler/internal/credit"
	"github.com/iliyamo/tutoring-scheduler/internal/logger"
	"github.com/iliyamo/tutoring-scheduler/internal/model"
	"github.com/iliyamo/tutoring-scheduler/internal/queue"
	"github.com/iliyamo/tutoring-scheduler/internal/repository"
)

// DefaultStoreTimeout bounds every storage round trip of one operation
// when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// publishTimeout bounds event publication after a commit.
const publishTimeout = 2 * time.Second

// Coordinator is safe for concurrent use.
type Coordinator struct {
	store    repository.Store
	ledger   *credit.Ledger
	events   queue.Publisher
	validate *validator.Validate
	now      func() time.Time
	timeout  time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLedger replaces the default credit ledger.
func WithLedger(l *credit.Ledger) Option {
	return func(c *Coordinator) { c.ledger = l }
}

// WithPublisher sets where booking events go.
func WithPublisher(p queue.Publisher) Option {
	return func(c *Coordinator) { c.events = p }
}

// WithStoreTimeout bounds storage calls of a single operation.  Zero
// disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithValidator shares a validator instance with the HTTP layer.
func WithValidator(v *validator.Validate) Option {
	return func(c *Coordinator) { c.validate = v }
}

// New returns a coordinator over store.
func New(store repository.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		ledger:   credit.NewLedger(nil),
		events:   queue.NopPublisher{},
		validate: validator.New(),
		now:      time.Now,
		timeout:  DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ledger exposes the credit ledger and its catalog.
func (c *Coordinator) Ledger() *credit.Ledger { return c.ledger }

func (c *Coordinator) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// location loads a centre and resolves its zone.
func (c *Coordinator) location(ctx context.Context, id string) (model.Location, *time.Location, error) {
	loc, err := c.store.GetLocation(ctx, id)
	if err != nil {
		return model.Location{}, nil, fromStore(err, "location")
	}
	return loc, model.LoadZone(loc.Timezone), nil
}

// publish sends an event after the request outcome is decided.  Failures
// are logged and never change the outcome.
func (c *Coordinator) publish(ctx context.Context, q string, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.events.Publish(ctx, q, payload); err != nil {
		logger.FromContext(ctx).Warn("failed to publish booking event",
			slog.String("queue", q),
			slog.String("error", err.Error()))
	}
}
