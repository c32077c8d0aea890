// pkg/notifier/kafka.go
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/config"
	"github.com/DrawzeoBarrela/pix-pocket-brasil/internal/domain"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the channel uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaChannel publishes every notification as an event for downstream consumers.
type KafkaChannel struct {
	writer MessageWriter
}

func NewKafkaChannel(writer MessageWriter) *KafkaChannel {
	return &KafkaChannel{writer: writer}
}

// NewKafkaWriter returns nil when no brokers are configured.
func NewKafkaWriter(cfg config.KafkaConfig, logger *zap.Logger) *kafka.Writer {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.NotifyTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  1,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
}

func (c *KafkaChannel) Name() string {
	return "kafka"
}

type operationEvent struct {
	EventType string                  `json:"event_type"`
	SentAt    time.Time               `json:"sent_at"`
	Job       *domain.NotificationJob `json:"notification"`
}

func (c *KafkaChannel) Send(ctx context.Context, job *domain.NotificationJob) error {
	eventType := fmt.Sprintf("%s.%s", job.Type, job.Status)
	if job.Test {
		eventType = "notification.test"
	}

	value, err := json.Marshal(operationEvent{
		EventType: eventType,
		SentAt:    time.Now().UTC(),
		Job:       job,
	})
	if err != nil {
		return Permanent(fmt.Errorf("failed to marshal event: %w", err))
	}

	msg := kafka.Message{
		Key:   []byte(job.OperationID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
