package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/V4T54L/reqnotify/internal/domain"
)

// MessageWriter is the subset of *kafka.Writer used by OutcomePublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutcomePublisher fans delivery outcomes out to a Kafka topic, keyed by
// notification ID. It implements domain.OutcomeObserver.
type OutcomePublisher struct {
	writer  MessageWriter
	logger  *slog.Logger
	timeout time.Duration
	warn    rate.Sometimes
}

// NewKafkaWriter returns an asynchronous writer for topic. Async writes never block
// the delivery goroutine; failures surface through the Completion callback.
func NewKafkaWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	failures := rate.Sometimes{First: 1, Interval: 10 * time.Second}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				failures.Do(func() {
					logger.Warn("failed to publish outcomes to kafka", "error", err, "messages", len(messages))
				})
			}
		},
	}
}

// NewOutcomePublisher wraps writer.
func NewOutcomePublisher(writer MessageWriter, logger *slog.Logger) *OutcomePublisher {
	return &OutcomePublisher{
		writer:  writer,
		logger:  logger.With("component", "kafka_outcome_publisher"),
		timeout: 2 * time.Second,
		warn:    rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// ObserveOutcome publishes o. Errors are logged, throttled, and otherwise dropped.
func (p *OutcomePublisher) ObserveOutcome(o domain.Outcome) {
	msg, err := outcomeMessage(o)
	if err != nil {
		p.logger.Error("failed to encode outcome", "error", err, "notification_id", o.NotificationID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.warn.Do(func() {
			p.logger.Warn("failed to publish outcome", "error", err)
		})
	}
}

// Close flushes pending messages.
func (p *OutcomePublisher) Close() error {
	return p.writer.Close()
}

func outcomeMessage(o domain.Outcome) (kafka.Message, error) {
	value, err := json.Marshal(o)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(o.NotificationID),
		Value: value,
		Time:  o.CompletedAt,
		Headers: []kafka.Header{
			{Key: "state", Value: []byte(o.State)},
		},
	}, nil
}
