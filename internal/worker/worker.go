package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"coursebridge/internal/config"
	"coursebridge/internal/logger"
	"coursebridge/internal/worker/processors"

	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the worker uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Worker consumes order webhooks relayed onto Kafka and runs them through the
// same processor as the HTTP webhook endpoint.
type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	reader    messageReader
	processor *processors.EventProcessor
}

func New(cfg *config.Config, logger *logger.Logger, processor *processors.EventProcessor) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        strings.Split(cfg.KafkaBrokers, ","),
		GroupID:        "coursebridge-worker",
		Topic:          cfg.KafkaOrderTopic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return newWorker(cfg, logger, reader, processor)
}

func newWorker(cfg *config.Config, logger *logger.Logger, reader messageReader, processor *processors.EventProcessor) *Worker {
	return &Worker{
		config:    cfg,
		logger:    logger,
		reader:    reader,
		processor: processor,
	}
}

// Start reads messages until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening for order events on %s...", w.config.KafkaOrderTopic)

	for {
		message, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				w.logger.Info("Worker loop stopped")
				return
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		w.logger.Debug("Received message: %s", string(message.Value))
		w.handle(ctx, message)
	}
}

// handle processes one message. Every message is consumed once; failures are
// logged and not redelivered.
func (w *Worker) handle(ctx context.Context, message kafka.Message) *processors.Result {
	// Parse event
	var event Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		w.logger.Error("Failed to parse event: %v", err)
		return nil
	}

	log := w.logger.With("topic", event.Topic, "webhook_id", event.WebhookID, "shop", event.Shop)

	orderEvent, err := processors.EventFromWebhook(event.Topic, event.WebhookID, event.Payload)
	if err != nil {
		log.Error("Failed to read order from event: %v", err)
		return nil
	}

	// Process event
	result := w.processor.Process(ctx, orderEvent)
	log.Debug("Event processed: %s", result.Message)
	return result
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}

// Event is the envelope a webhook relay writes to the order topic.
type Event struct {
	Topic     string          `json:"topic"`
	WebhookID string          `json:"webhook_id"`
	Shop      string          `json:"shop"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}
