package events

import (
	"context"
	"sync/atomic"

	"github.com/MrWong99/lingualert/internal/observe"
)

// LogPublisher writes events to the structured log instead of a broker.
type LogPublisher struct {
	metrics *observe.Metrics
	closed  atomic.Bool
}

var _ Publisher = (*LogPublisher)(nil)

// NewLogPublisher returns a log-only publisher.
func NewLogPublisher(m *observe.Metrics) *LogPublisher {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &LogPublisher{metrics: m}
}

// Publish implements [Publisher].
func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	if p.closed.Load() {
		return ErrClosed
	}
	payload, err := e.Encode()
	p.metrics.RecordEvent(ctx, BackendLog, e.Type, err)
	if err != nil {
		return err
	}
	observe.Logger(ctx).Info("event", "type", e.Type, "key", e.Key, "payload", string(payload))
	return nil
}

// Close implements [Publisher].
func (p *LogPublisher) Close() error {
	p.closed.Store(true)
	return nil
}
