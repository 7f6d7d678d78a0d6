// Package merging consolidates a duplicate group into its master record
// while capturing an auditable trail of conflicts and unmerged data.
package merging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// DefaultBatchSize bounds how many duplicates one consolidation call absorbs
const DefaultBatchSize = 100

// RecordConsolidator applies the merge to storage: survivor values are
// written onto the master and the duplicates are absorbed.
type RecordConsolidator interface {
	Consolidate(ctx context.Context, tenantID, objectType, masterID string, duplicateIDs []string, overwrites map[string]models.Value) error
}

// NoteWriter persists the audit note for a merge
type NoteWriter interface {
	WriteMergeNote(ctx context.Context, note *models.MergeNote) error
}

// Executor performs group consolidation
type Executor struct {
	logger       ectologger.Logger
	consolidator RecordConsolidator
	notes        NoteWriter
	batchSize    int
}

// NewExecutor creates a merge executor with the default sub-batch size
func NewExecutor(logger ectologger.Logger, consolidator RecordConsolidator, notes NoteWriter) *Executor {
	return &Executor{
		logger:       logger,
		consolidator: consolidator,
		notes:        notes,
		batchSize:    DefaultBatchSize,
	}
}

// Merge consolidates a duplicate group into the master chosen by the
// strategy. Consolidation runs in sub-batches; a failed sub-batch is
// recorded and the remaining batches still run. The result is always
// well-formed, even when every batch fails.
func (e *Executor) Merge(ctx context.Context, group *models.DuplicateGroup, cfg models.DedupeConfig) *models.MergeResult {
	ctx, span := tracing.StartSpan(ctx, "merging.Executor.Merge")
	defer span.End()

	result := &models.MergeResult{Errors: []string{}}

	master := group.Master(cfg.MasterStrategy)
	if master == nil {
		result.Errors = append(result.Errors, "group has no records to merge")
		return result
	}
	result.MasterID = master.ID

	duplicateIDs := group.DuplicateIDs(master)
	if len(duplicateIDs) == 0 {
		return result
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   master.TenantID,
		"object_type": master.ObjectType,
		"master_id":   master.ID,
		"group_key":   group.GroupKey,
		"group_size":  group.Size(),
	})

	conflicts, nonMergeable := e.diffAgainstMaster(group, master)

	if err := e.writeAuditNote(ctx, group, master, duplicateIDs, conflicts, nonMergeable); err != nil {
		log.WithError(err).Error("failed to write merge audit note")
		result.Errors = append(result.Errors, fmt.Sprintf("audit note: %s", err.Error()))
	}

	// survivor overwrites ride along until a sub-batch succeeds, so a failed
	// first sub-batch cannot absorb the only records holding those values
	// without the master ever receiving them
	overwrites := survivorValues(nonMergeable)

	for start := 0; start < len(duplicateIDs); start += e.batchSize {
		end := min(start+e.batchSize, len(duplicateIDs))
		batch := duplicateIDs[start:end]

		if err := e.consolidator.Consolidate(ctx, master.TenantID, master.ObjectType, master.ID, batch, overwrites); err != nil {
			log.WithError(err).WithField("batch_size", len(batch)).Error("consolidation sub-batch failed")
			result.Errors = append(result.Errors, fmt.Sprintf("consolidate %d records into %s: %s", len(batch), master.ID, err.Error()))
			continue
		}
		overwrites = nil
		result.RecordsMerged += len(batch)
	}

	log.WithFields(map[string]any{
		"records_merged": result.RecordsMerged,
		"conflicts":      len(conflicts),
		"errors":         len(result.Errors),
	}).Info("merged duplicate group")

	return result
}

// diffAgainstMaster walks every non-null field of every non-master record.
// A field that differs from the master's value becomes a conflict; a field
// the master does not have becomes non-mergeable data.
func (e *Executor) diffAgainstMaster(group *models.DuplicateGroup, master *models.Record) (models.ConflictSet, models.NonMergeableData) {
	conflicts := models.ConflictSet{}
	nonMergeable := models.NonMergeableData{}

	for i := range group.Records {
		other := &group.Records[i]
		if other.ID == master.ID {
			continue
		}

		for _, field := range sortedFieldNames(other) {
			otherValue := other.Fields[field]
			if otherValue.IsNull() {
				continue
			}

			masterValue := master.Get(field)
			if masterValue.IsNull() {
				nonMergeable[field] = append(nonMergeable[field], models.UnmergedValue{
					Value:    otherValue.Interface(),
					RecordID: other.ID,
				})
				continue
			}

			if masterValue.String() != otherValue.String() {
				conflicts[field] = append(conflicts[field], models.FieldConflict{
					Field:       field,
					MasterValue: masterValue.Interface(),
					OtherValue:  otherValue.Interface(),
					OtherID:     other.ID,
				})
			}
		}
	}

	return conflicts, nonMergeable
}

func (e *Executor) writeAuditNote(ctx context.Context, group *models.DuplicateGroup, master *models.Record, duplicateIDs []string, conflicts models.ConflictSet, nonMergeable models.NonMergeableData) error {
	conflictJSON, err := json.Marshal(conflicts)
	if err != nil {
		return fmt.Errorf("failed to marshal conflicts: %w", err)
	}
	nonMergeableJSON, err := json.Marshal(nonMergeable)
	if err != nil {
		return fmt.Errorf("failed to marshal non-mergeable data: %w", err)
	}

	note := &models.MergeNote{
		ID:           uuid.New().String(),
		TenantID:     master.TenantID,
		ObjectType:   master.ObjectType,
		MasterID:     master.ID,
		MergedIDs:    models.JSONStrings(duplicateIDs),
		Conflicts:    conflictJSON,
		NonMergeable: nonMergeableJSON,
		Summary:      buildSummary(group, master, duplicateIDs, conflicts, nonMergeable),
		Actor:        "system",
		CreatedAt:    time.Now().UTC(),
	}

	return e.notes.WriteMergeNote(ctx, note)
}

func buildSummary(group *models.DuplicateGroup, master *models.Record, duplicateIDs []string, conflicts models.ConflictSet, nonMergeable models.NonMergeableData) string {
	kind := "fuzzy"
	if group.IsExactMatch {
		kind = "exact"
	}
	return fmt.Sprintf(
		"merged %d duplicate record(s) into %s (%s group %q, score %.1f); %d conflicting field(s), %d field(s) only present on merged records",
		len(duplicateIDs), master.ID, kind, group.GroupKey, group.MatchScore, len(conflicts), len(nonMergeable),
	)
}

// survivorValues picks the value the master inherits for each field it was
// missing. The first record observed with the field wins.
func survivorValues(nonMergeable models.NonMergeableData) map[string]models.Value {
	if len(nonMergeable) == 0 {
		return nil
	}

	overwrites := make(map[string]models.Value, len(nonMergeable))
	for field, values := range nonMergeable {
		if len(values) == 0 {
			continue
		}
		overwrites[field] = models.ValueFromAny(values[0].Value)
	}
	return overwrites
}

func sortedFieldNames(record *models.Record) []string {
	names := make([]string, 0, len(record.Fields))
	for name := range record.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
