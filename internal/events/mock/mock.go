// Package mock provides a test double for events.Publisher.
//
// Publisher records every event it is given:
//
//	pub := &mock.Publisher{}
//	_ = pub.Publish(ctx, events.NewEvent(events.TypeReportCreated, id, r))
//	pub.Types() // ["report.created"]
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/lingualert/internal/events"
)

// Publisher is a mock implementation of events.Publisher.
type Publisher struct {
	mu sync.Mutex

	// PublishErr, if non-nil, is returned by every Publish call. The event
	// is still recorded.
	PublishErr error

	// PingErr is returned by Ping.
	PingErr error

	events []events.Event
	closed bool
}

var (
	_ events.Publisher = (*Publisher)(nil)
	_ events.Pinger    = (*Publisher)(nil)
)

// Publish records e.
func (p *Publisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return events.ErrClosed
	}
	p.events = append(p.events, e)
	return p.PublishErr
}

// Ping returns PingErr.
func (p *Publisher) Ping(context.Context) error { return p.PingErr }

// Close marks the publisher closed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// Types returns the types of the recorded events, in order.
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// Closed reports whether Close was called.
func (p *Publisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
