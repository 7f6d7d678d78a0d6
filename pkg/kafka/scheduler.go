package kafka

import (
	"context"

	"github.com/Gobusters/ectologger"
)

// Scheduler submits job continuations over Kafka. A consumer of the
// continuation topic runs the next execution cycle.
type Scheduler struct {
	producer *Producer
	logger   ectologger.Logger
	topic    string
}

// NewScheduler creates a continuation scheduler publishing to topic
func NewScheduler(producer *Producer, logger ectologger.Logger, topic string) *Scheduler {
	return &Scheduler{
		producer: producer,
		logger:   logger,
		topic:    topic,
	}
}

// Submit publishes a continuation for the job
func (s *Scheduler) Submit(ctx context.Context, tenantID, jobID string) error {
	return s.producer.PublishJobContinuation(ctx, s.topic, &JobContinuation{
		TenantID: tenantID,
		JobID:    jobID,
	})
}
