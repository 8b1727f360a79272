// Package events carries domain events from the service that committed a
// change to whoever subscribed to it: in-process reactions such as the
// statistics recompute, and external sinks such as a Redis stream or Kafka.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const ReferralCreated = "referral.created"

// Event is published only after the originating transaction commits.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Subject    string            `json:"subject"`
	OccurredAt time.Time         `json:"occurredAt"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func New(eventType, subject string, at time.Time, attrs map[string]string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: at,
		Attributes: attrs,
	}
}

// Publisher accepts events. *Bus and the external sinks implement it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Handler func(ctx context.Context, e Event) error

type subscription struct {
	name string
	fn   Handler
}

// Bus dispatches events synchronously to subscribers in subscription order.
// A failing subscriber does not stop the others.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{subs: make(map[string][]subscription), logger: logger}
}

func (b *Bus) Subscribe(eventType, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], subscription{name: name, fn: fn})
}

// Forward subscribes an external publisher to eventType.
func (b *Bus) Forward(eventType, name string, p Publisher) {
	b.Subscribe(eventType, name, p.Publish)
}

// Publish runs every subscriber for e.Type. Failures are logged here and
// returned joined; callers treat them as reports, not as a reason to undo
// the change that produced the event.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[e.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := b.dispatch(ctx, s, e); err != nil {
			b.logger.Error().
				Err(err).
				Str("event_id", e.ID).
				Str("event_type", e.Type).
				Str("subject", e.Subject).
				Str("subscriber", s.name).
				Msg("event subscriber failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) dispatch(ctx context.Context, s subscription, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(ctx, e)
}
