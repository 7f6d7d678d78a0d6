package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobContinuation asks a consumer to run the next execution cycle of a job
type JobContinuation struct {
	TenantID    string    `json:"tenant_id"`
	JobID       string    `json:"job_id"`
	Cycle       int       `json:"cycle"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IncomingMessage is a Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// MessageTypeJobContinuation marks a job continuation message
const MessageTypeJobContinuation = "job.continuation"

// IsJobContinuation checks the message_type header
func (m *IncomingMessage) IsJobContinuation() bool {
	return m.Headers["message_type"] == MessageTypeJobContinuation
}

// ParseJobContinuation decodes the message body as a job continuation
func (m *IncomingMessage) ParseJobContinuation() (*JobContinuation, error) {
	var continuation JobContinuation
	if err := json.Unmarshal(m.Value, &continuation); err != nil {
		return nil, fmt.Errorf("failed to parse job continuation: %w", err)
	}
	if continuation.JobID == "" {
		return nil, fmt.Errorf("job continuation is missing job_id")
	}
	if continuation.TenantID == "" {
		return nil, fmt.Errorf("job continuation is missing tenant_id")
	}
	return &continuation, nil
}
