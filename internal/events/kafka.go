package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MrWong99/lingualert/internal/observe"
)

// DefaultTopic receives events when no topic is configured.
const DefaultTopic = "lingualert.events"

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by [Event.Key].
type KafkaPublisher struct {
	w       messageWriter
	brokers []string
	topic   string
	metrics *observe.Metrics
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, m *observe.Metrics) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	dialer := &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{Dial: dialer.DialFunc},
	}
	p := newKafkaPublisher(w, topic, m)
	p.brokers = brokers
	return p
}

func newKafkaPublisher(w messageWriter, topic string, m *observe.Metrics) *KafkaPublisher {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &KafkaPublisher{w: w, topic: topic, metrics: m}
}

// Publish implements [Publisher].
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := e.Encode()
	if err != nil {
		p.metrics.RecordEvent(ctx, BackendKafka, e.Type, err)
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.Key),
		Value: payload,
		Time:  e.Time,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(e.Type)},
			{Key: "contentType", Value: []byte("application/json")},
		},
	}
	err = p.w.WriteMessages(ctx, msg)
	p.metrics.RecordEvent(ctx, BackendKafka, e.Type, err)
	if err != nil {
		observe.Logger(ctx).Error("kafka publish failed", "topic", p.topic, "type", e.Type, "key", e.Key, "error", err)
		return fmt.Errorf("events: kafka publish %s: %w", e.Type, err)
	}
	observe.Logger(ctx).Debug("event published", "topic", p.topic, "type", e.Type, "key", e.Key)
	return nil
}

// Ping dials the first reachable broker.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	var errs []error
	for _, b := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("events: no kafka broker reachable: %w", errors.Join(errs...))
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("events: close kafka writer: %w", err)
	}
	return nil
}
