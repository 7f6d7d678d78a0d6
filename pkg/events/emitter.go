// Package events emits job lifecycle and merge events to Kafka
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

// Emitter publishes deduplication events. Emission failures are logged and
// swallowed: events are advisory and must never fail a job.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// JobStatusChanged emits an event for the job's current status
func (e *Emitter) JobStatusChanged(ctx context.Context, job *models.DedupeJob) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.JobStatusChanged")
	defer span.End()

	event := &JobStatusEvent{
		BaseEvent:        e.base(eventTypeForStatus(job.Status), job.TenantID),
		JobID:            job.ID,
		ObjectType:       job.ObjectType,
		Status:           string(job.Status),
		RecordsProcessed: job.RecordsProcessed,
		DuplicatesFound:  job.DuplicatesFound,
		RecordsMerged:    job.RecordsMerged,
		Errors:           []string(job.Errors),
	}

	if err := e.producer.PublishEvent(ctx, string(event.EventType), job.TenantID, job.ID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("job_id", job.ID).Error("Failed to emit job status event")
	}
}

// GroupMerged emits an event for a consolidated duplicate group
func (e *Emitter) GroupMerged(ctx context.Context, job *models.DedupeJob, group *models.DuplicateGroup, result *models.MergeResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.GroupMerged")
	defer span.End()

	mergedIDs := make([]string, 0, group.Size())
	for _, record := range group.Records {
		if record.ID != result.MasterID {
			mergedIDs = append(mergedIDs, record.ID)
		}
	}

	event := &RecordMergedEvent{
		BaseEvent:    e.base(EventTypeRecordMerged, job.TenantID),
		JobID:        job.ID,
		ObjectType:   job.ObjectType,
		MasterID:     result.MasterID,
		MergedIDs:    mergedIDs,
		GroupKey:     group.GroupKey,
		MatchScore:   group.MatchScore,
		IsExactMatch: group.IsExactMatch,
		ErrorCount:   len(result.Errors),
	}

	if err := e.producer.PublishEvent(ctx, string(event.EventType), job.TenantID, result.MasterID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("job_id", job.ID).Error("Failed to emit record merged event")
	}
}

func (e *Emitter) base(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
	}
}

func eventTypeForStatus(status models.JobStatus) EventType {
	switch status {
	case models.JobStatusCompleted:
		return EventTypeJobCompleted
	case models.JobStatusFailed:
		return EventTypeJobFailed
	default:
		return EventTypeJobRunning
	}
}
