package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishJobContinuation publishes a continuation message keyed by job id so
// all cycles of one job land on the same partition.
func (p *Producer) PublishJobContinuation(ctx context.Context, topic string, continuation *JobContinuation) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishJobContinuation")
	defer span.End()

	if continuation.SubmittedAt.IsZero() {
		continuation.SubmittedAt = time.Now().UTC()
	}

	data, err := json.Marshal(continuation)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(continuation.JobID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "message_type", Value: []byte(MessageTypeJobContinuation)},
			{Key: "tenant_id", Value: []byte(continuation.TenantID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish job continuation")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"job_id":    continuation.JobID,
		"tenant_id": continuation.TenantID,
		"cycle":     continuation.Cycle,
	}).Debug("Published job continuation")

	return nil
}

// PublishEvent publishes a lifecycle event to the producer's default topic
func (p *Producer) PublishEvent(ctx context.Context, eventType, tenantID, key string, payload any) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishEvent")
	defer span.End()

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "tenant_id", Value: []byte(tenantID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": eventType,
		"tenant_id":  tenantID,
		"key":        key,
	}).Debug("Published event")

	return nil
}
