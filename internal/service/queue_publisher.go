// Package service holds adapters between the booking core and outside
// infrastructure.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tutoring-scheduler/internal/queue"
)

// RabbitPublisher publishes booking events to durable queues on the
// default exchange.  It keeps one connection and channel open and
// redials lazily after the broker drops them.  It is safe for concurrent
// use.
type RabbitPublisher struct {
	url string
	log *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ queue.Publisher = (*RabbitPublisher)(nil)

// NewRabbitPublisher dials url and declares every queue in queue.Queues.
func NewRabbitPublisher(url string, log *slog.Logger) (*RabbitPublisher, error) {
	if log == nil {
		log = slog.Default()
	}
	p := &RabbitPublisher{url: url, log: log}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitPublisher) connectLocked() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	for _, name := range queue.Queues {
		// Durable so messages survive broker restarts.
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return fmt.Errorf("rabbitmq declare %s: %w", name, err)
		}
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Publish marshals payload as JSON and sends it as a persistent message
// with the queue name as routing key.
func (p *RabbitPublisher) Publish(ctx context.Context, name string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connectLocked(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, "", name, false, false, msg); err != nil {
		p.log.Warn("rabbitmq: publish failed", "queue", name, "error", err)
		if errors.Is(err, amqp.ErrClosed) {
			p.closeLocked()
		}
		return err
	}
	return nil
}

func (p *RabbitPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}
