package models

import (
	"encoding/json"
	"time"
)

// FieldConflict records one field whose value on a non-master record differs
// from the master's value
type FieldConflict struct {
	Field       string `json:"field"`
	MasterValue any    `json:"master_value"`
	OtherValue  any    `json:"other_value"`
	OtherID     string `json:"other_id"`
}

// ConflictSet maps field name to the differing values observed across the
// group's non-master records. Transient: serialized into the merge note, not
// persisted as its own entity.
type ConflictSet map[string][]FieldConflict

// UnmergedValue is a value populated only on a non-master record. The first
// one observed per field survives onto the master; every one is captured for
// audit so nothing disappears silently.
type UnmergedValue struct {
	Value    any    `json:"value"`
	RecordID string `json:"record_id"`
}

// NonMergeableData maps field name to values that exist only on absorbed records
type NonMergeableData map[string][]UnmergedValue

// MergeResult is the outcome of consolidating one duplicate group
type MergeResult struct {
	MasterID      string   `json:"master_id"`
	RecordsMerged int      `json:"records_merged"`
	Errors        []string `json:"errors,omitempty"`
}

// MergeNote is the audit record written for every merge attempt
type MergeNote struct {
	ID           string          `json:"id" db:"id"`
	TenantID     string          `json:"tenant_id" db:"tenant_id"`
	ObjectType   string          `json:"object_type" db:"object_type"`
	MasterID     string          `json:"master_id" db:"master_id"`
	MergedIDs    JSONStrings     `json:"merged_ids" db:"merged_ids"`
	Conflicts    json.RawMessage `json:"conflicts,omitempty" db:"conflicts"`
	NonMergeable json.RawMessage `json:"non_mergeable,omitempty" db:"non_mergeable"`
	Summary      string          `json:"summary" db:"summary"`
	Actor        string          `json:"actor" db:"actor"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
