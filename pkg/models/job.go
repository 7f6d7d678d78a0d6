package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a dedupe job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JSONStrings stores a string slice as a jsonb column
type JSONStrings []string

// Scan implements sql.Scanner
func (s *JSONStrings) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("JSONStrings.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, s)
}

// Value implements driver.Valuer
func (s JSONStrings) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(s))
}

// DedupeJob is the persisted state of one deduplication job. It is owned
// exclusively by the batch orchestrator and mutated only at chunk boundaries,
// so a fresh execution cycle can reconstruct the job from this row alone.
type DedupeJob struct {
	ID               string          `json:"id" db:"id"`
	TenantID         string          `json:"tenant_id" db:"tenant_id"`
	ObjectType       string          `json:"object_type" db:"object_type"`
	Status           JobStatus       `json:"status" db:"status"`
	Config           json.RawMessage `json:"config" db:"config"`
	RecordsProcessed int64           `json:"records_processed" db:"records_processed"`
	DuplicatesFound  int64           `json:"duplicates_found" db:"duplicates_found"`
	RecordsMerged    int64           `json:"records_merged" db:"records_merged"`
	Cursor           string          `json:"cursor" db:"cursor"` // last seen record id
	Errors           JSONStrings     `json:"errors" db:"errors"`
	StartedAt        *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// DedupeConfig decodes the job's stored configuration
func (j *DedupeJob) DedupeConfig() (*DedupeConfig, error) {
	var cfg DedupeConfig
	if err := json.Unmarshal(j.Config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse job config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// IsTerminal reports whether the job has finished (completed or failed)
func (j *DedupeJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// CreateDedupeJobRequest is the request to start a dedupe job
type CreateDedupeJobRequest struct {
	ObjectType     string         `json:"object_type" validate:"required"`
	FieldSpecs     []FieldSpec    `json:"field_specs" validate:"required,min=1,dive"`
	MasterStrategy MasterStrategy `json:"master_strategy"`
	FuzzyThreshold float64        `json:"fuzzy_threshold" validate:"gte=0,lte=100"`
	ChunkSize      int            `json:"chunk_size" validate:"gte=0"`
	DryRun         bool           `json:"dry_run"`
}

// ToConfig converts the request into a DedupeConfig with defaults applied
func (r *CreateDedupeJobRequest) ToConfig() *DedupeConfig {
	cfg := &DedupeConfig{
		ObjectType:     r.ObjectType,
		FieldSpecs:     r.FieldSpecs,
		MasterStrategy: r.MasterStrategy,
		FuzzyThreshold: r.FuzzyThreshold,
		ChunkSize:      r.ChunkSize,
		DryRun:         r.DryRun,
	}
	cfg.ApplyDefaults()
	return cfg
}
