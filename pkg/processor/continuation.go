package processor

import (
	"context"
	"time"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
)

// ContinuationConfig bounds each execution cycle triggered by a continuation
// message. Zero values disable the corresponding limit.
type ContinuationConfig struct {
	MaxDuration time.Duration
	MaxRecords  int64
}

// ContinuationHandler returns the kafka message handler that runs one
// execution cycle per continuation. Non-continuation messages are ignored.
// A returned error leaves the message uncommitted for redelivery; malformed
// continuations are dropped instead, since redelivering them can never
// succeed.
func (p *DedupeProcessor) ContinuationHandler(cfg ContinuationConfig) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		if !msg.IsJobContinuation() {
			return nil
		}

		continuation, err := msg.ParseJobContinuation()
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("dropping malformed job continuation")
			return nil
		}

		budget := NewCycleBudget(cfg.MaxDuration, cfg.MaxRecords)
		_, err = p.RunCycle(ctx, continuation.TenantID, continuation.JobID, budget)
		return err
	}
}
