package events

import (
	"time"
)

// EventType defines the type of event
type EventType string

const (
	// Job lifecycle events
	EventTypeJobRunning   EventType = "dedupe.job.running"
	EventTypeJobCompleted EventType = "dedupe.job.completed"
	EventTypeJobFailed    EventType = "dedupe.job.failed"

	// Record events
	EventTypeRecordMerged EventType = "dedupe.record.merged"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// JobStatusEvent is emitted at every job status transition
type JobStatusEvent struct {
	BaseEvent
	JobID            string   `json:"job_id"`
	ObjectType       string   `json:"object_type"`
	Status           string   `json:"status"`
	RecordsProcessed int64    `json:"records_processed"`
	DuplicatesFound  int64    `json:"duplicates_found"`
	RecordsMerged    int64    `json:"records_merged"`
	Errors           []string `json:"errors,omitempty"`
}

// RecordMergedEvent is emitted after a duplicate group is consolidated
type RecordMergedEvent struct {
	BaseEvent
	JobID        string   `json:"job_id"`
	ObjectType   string   `json:"object_type"`
	MasterID     string   `json:"master_id"`
	MergedIDs    []string `json:"merged_ids"`
	GroupKey     string   `json:"group_key"`
	MatchScore   float64  `json:"match_score"`
	IsExactMatch bool     `json:"is_exact_match"`
	ErrorCount   int      `json:"error_count"`
}
