package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/MrWong99/lingualert/internal/observe"
)

// DefaultExchange is the topic exchange used when none is configured.
const DefaultExchange = "lingualert.events"

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConn interface {
	Close() error
	IsClosed() bool
}

// AMQPPublisher publishes events to a durable topic exchange with the event
// type as routing key.
type AMQPPublisher struct {
	exchange string
	metrics  *observe.Metrics
	conn     amqpConn

	mu sync.Mutex // amqp channels are not safe for concurrent publishing
	ch amqpChannel
}

var _ Publisher = (*AMQPPublisher)(nil)

// DialAMQP connects to url and declares the exchange.
func DialAMQP(url, exchange string, m *observe.Metrics) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: connect amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open amqp channel: %w", err)
	}
	p, err := newAMQPPublisher(ch, conn, exchange, m)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, conn amqpConn, exchange string, m *observe.Metrics) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if m == nil {
		m = observe.DefaultMetrics()
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("events: declare exchange %q: %w", exchange, err)
	}
	return &AMQPPublisher{exchange: exchange, metrics: m, conn: conn, ch: ch}, nil
}

// Publish implements [Publisher].
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := e.Encode()
	if err != nil {
		p.metrics.RecordEvent(ctx, BackendAMQP, e.Type, err)
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.Key,
		Timestamp:    e.Time,
		Type:         e.Type,
		Body:         payload,
	}

	p.mu.Lock()
	if p.ch == nil {
		p.mu.Unlock()
		return ErrClosed
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg)
	p.mu.Unlock()

	p.metrics.RecordEvent(ctx, BackendAMQP, e.Type, err)
	if err != nil {
		observe.Logger(ctx).Error("amqp publish failed", "exchange", p.exchange, "type", e.Type, "key", e.Key, "error", err)
		return fmt.Errorf("events: amqp publish %s: %w", e.Type, err)
	}
	return nil
}

// Ping reports whether the broker connection is still open.
func (p *AMQPPublisher) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return ErrClosed
	}
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("events: amqp connection closed")
	}
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	ch := p.ch
	p.ch = nil
	p.mu.Unlock()
	if ch == nil {
		return nil
	}
	var errs []error
	if err := ch.Close(); err != nil {
		errs = append(errs, fmt.Errorf("events: close amqp channel: %w", err))
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: close amqp connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
