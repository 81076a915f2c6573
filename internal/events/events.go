// Package events publishes domain events about recordings and reports to
// downstream dispatch systems.
//
// Three backends implement [Publisher]: Kafka, AMQP (RabbitMQ) and a
// log-only publisher used when no broker is configured. Every backend sends
// the same JSON envelope.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/lingualert/internal/observe"
)

// Event types.
const (
	TypeRecordingFinalized = "recording.finalized"
	TypeReportCreated      = "report.created"
)

// Backend names accepted by [New].
const (
	BackendLog   = "log"
	BackendKafka = "kafka"
	BackendAMQP  = "amqp"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: publisher closed")

// Event is one outbound message. Key groups related events (the report or
// recording id) so brokers can keep them ordered.
type Event struct {
	Type string    `json:"type"`
	Key  string    `json:"key"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, key string, data any) Event {
	return Event{Type: typ, Key: key, Time: time.Now().UTC(), Data: data}
}

// Encode returns the JSON envelope sent to brokers.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("events: encode %s: %w", e.Type, err)
	}
	return b, nil
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "log", "kafka" or "amqp". Empty means "log".
	Backend string `yaml:"backend"`

	// Brokers lists Kafka bootstrap addresses.
	Brokers []string `yaml:"brokers"`

	// Topic is the Kafka topic.
	Topic string `yaml:"topic"`

	// URL is the AMQP connection URL.
	URL string `yaml:"url"`

	// Exchange is the AMQP topic exchange. Routing keys are event types.
	Exchange string `yaml:"exchange"`
}

// Validate reports configuration errors for the selected backend.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendLog:
		return nil
	case BackendKafka:
		if len(c.Brokers) == 0 {
			return errors.New("events: kafka backend requires brokers")
		}
	case BackendAMQP:
		if c.URL == "" {
			return errors.New("events: amqp backend requires url")
		}
	default:
		return fmt.Errorf("events: unknown backend %q", c.Backend)
	}
	return nil
}

// Pinger is implemented by publishers that can check broker reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates the publisher selected by cfg.
func New(cfg Config, m *observe.Metrics) (Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendKafka:
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic, m), nil
	case BackendAMQP:
		return DialAMQP(cfg.URL, cfg.Exchange, m)
	default:
		return NewLogPublisher(m), nil
	}
}
