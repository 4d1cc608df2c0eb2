// Package testutil holds test doubles shared by the service and HTTP tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/canteen_pos/internal/app/events"
)

// RecordingPublisher records every published event.
type RecordingPublisher struct {
	mu     sync.RWMutex
	events []events.Event
	err    error
}

// NewRecordingPublisher creates an empty recorder.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// FailWith makes subsequent Publish calls record the event and return err.
func (p *RecordingPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish implements events.Publisher.
func (p *RecordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the recorded event types in publish order.
func (p *RecordingPublisher) Types() []events.Type {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]events.Type, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.Type)
	}
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
