package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"coursebridge/internal/config"
	"coursebridge/internal/logger"
)

// EnrollmentEvent records what happened to one order line item.
type EnrollmentEvent struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	OrderTopic string    `json:"order_topic"`
	Email      string    `json:"email"`
	ProductID  string    `json:"product_id"`
	CourseID   string    `json:"course_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher hands enrollment events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event EnrollmentEvent) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the exporter uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Exporter struct {
	topic  string
	writer messageWriter
	logger *logger.Logger
}

// New returns a Kafka-backed exporter, or a no-op publisher when no brokers
// are configured.
func New(cfg *config.Config, logger *logger.Logger) Publisher {
	if strings.TrimSpace(cfg.KafkaBrokers) == "" {
		logger.Info("Kafka not configured; enrollment events will not be exported")
		return NopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
		Topic:        cfg.KafkaEnrollmentTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newExporter(cfg.KafkaEnrollmentTopic, writer, logger)
}

func newExporter(topic string, writer messageWriter, logger *logger.Logger) *Exporter {
	return &Exporter{
		topic:  topic,
		writer: writer,
		logger: logger,
	}
}

// Publish writes the event keyed by order id so one order's events stay on
// one partition.
func (e *Exporter) Publish(ctx context.Context, event EnrollmentEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal enrollment event: %w", err)
	}

	if err := e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", e.topic, err)
	}

	e.logger.Debug("Exported enrollment event %s for order %s", event.ID, event.OrderID)
	return nil
}

func (e *Exporter) Close() error {
	return e.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, EnrollmentEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
