package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coursebridge/internal/config"
	"coursebridge/internal/logger"
	"coursebridge/internal/worker"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the relay uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay forwards authenticated Shopify webhooks to the order topic for the
// worker to process.
type Relay struct {
	topic  string
	writer messageWriter
	logger *logger.Logger
}

// New returns a relay when webhooks are configured to go through Kafka, and
// nil otherwise.
func New(cfg *config.Config, logger *logger.Logger) *Relay {
	if cfg.WebhookMode != config.WebhookModeRelay {
		return nil
	}
	if strings.TrimSpace(cfg.KafkaBrokers) == "" {
		logger.Error("WEBHOOK_MODE=relay needs KAFKA_BROKERS; processing webhooks inline")
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
		Topic:        cfg.KafkaOrderTopic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newRelay(cfg.KafkaOrderTopic, writer, logger)
}

func newRelay(topic string, writer messageWriter, logger *logger.Logger) *Relay {
	return &Relay{
		topic:  topic,
		writer: writer,
		logger: logger,
	}
}

// Forward publishes one webhook body, keyed by shop so a shop's events keep
// their order.
func (r *Relay) Forward(ctx context.Context, topic, webhookID, shop string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("webhook %s: body is not JSON", webhookID)
	}

	value, err := json.Marshal(worker.Event{
		Topic:     topic,
		WebhookID: webhookID,
		Shop:      shop,
		Payload:   json.RawMessage(payload),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook %s: %w", webhookID, err)
	}

	if err := r.writer.WriteMessages(ctx, kafka.Message{Key: []byte(shop), Value: value}); err != nil {
		return fmt.Errorf("failed to publish webhook %s to %s: %w", webhookID, r.topic, err)
	}

	r.logger.Debug("Relayed %s webhook %s to %s", topic, webhookID, r.topic)
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
