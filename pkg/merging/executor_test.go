package merging

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

type consolidateCall struct {
	masterID     string
	duplicateIDs []string
	overwrites   map[string]models.Value
}

type fakeConsolidator struct {
	calls    []consolidateCall
	failNext int
}

func (f *fakeConsolidator) Consolidate(ctx context.Context, tenantID, objectType, masterID string, duplicateIDs []string, overwrites map[string]models.Value) error {
	if f.failNext > 0 {
		f.failNext--
		return fmt.Errorf("storage unavailable")
	}
	f.calls = append(f.calls, consolidateCall{masterID: masterID, duplicateIDs: duplicateIDs, overwrites: overwrites})
	return nil
}

type fakeNoteWriter struct {
	notes []*models.MergeNote
	err   error
}

func (f *fakeNoteWriter) WriteMergeNote(ctx context.Context, note *models.MergeNote) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, note)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func record(id string, createdAt time.Time, fields map[string]any) models.Record {
	values := make(map[string]models.Value, len(fields))
	for name, raw := range fields {
		values[name] = models.ValueFromAny(raw)
	}
	return models.Record{
		ID:         id,
		TenantID:   "tenant-1",
		ObjectType: "account",
		Fields:     values,
		CreatedAt:  createdAt,
	}
}

func TestMerge_MostCompleteMasterAndConflicts(t *testing.T) {
	now := time.Now()
	group := &models.DuplicateGroup{
		Records: []models.Record{
			record("A", now, map[string]any{"Name": "Acme", "Phone": "415-555-1234"}),
			record("B", now, map[string]any{"Name": "Acme Inc", "Phone": "415-555-1234", "Industry": "Manufacturing", "Website": "acme.test"}),
			record("C", now, map[string]any{"Name": "Acme", "Fax": "415-555-9999"}),
		},
		MatchScore:   100,
		GroupKey:     "acme|#|415",
		IsExactMatch: true,
	}

	consolidator := &fakeConsolidator{}
	noteWriter := &fakeNoteWriter{}
	executor := NewExecutor(testLogger(), consolidator, noteWriter)

	result := executor.Merge(context.Background(), group, models.DedupeConfig{MasterStrategy: models.MasterStrategyMostComplete})

	assert.Equal(t, "B", result.MasterID)
	assert.Equal(t, 2, result.RecordsMerged)
	assert.Empty(t, result.Errors)

	require.Len(t, consolidator.calls, 1)
	assert.Equal(t, []string{"A", "C"}, consolidator.calls[0].duplicateIDs)

	// the fax exists only on C, so the master inherits it
	require.Contains(t, consolidator.calls[0].overwrites, "Fax")
	assert.Equal(t, "415-555-9999", consolidator.calls[0].overwrites["Fax"].String())

	require.Len(t, noteWriter.notes, 1)
	note := noteWriter.notes[0]
	assert.Equal(t, "B", note.MasterID)
	assert.ElementsMatch(t, []string{"A", "C"}, []string(note.MergedIDs))

	var conflicts models.ConflictSet
	require.NoError(t, json.Unmarshal(note.Conflicts, &conflicts))
	require.Contains(t, conflicts, "Name")
	assert.Len(t, conflicts["Name"], 2, "both A and C differ from the master's name")

	var nonMergeable models.NonMergeableData
	require.NoError(t, json.Unmarshal(note.NonMergeable, &nonMergeable))
	assert.Contains(t, nonMergeable, "Fax")
	assert.NotContains(t, nonMergeable, "Phone")
}

func TestMerge_SubBatchesWithPartialFailure(t *testing.T) {
	now := time.Now()
	records := []models.Record{record("master", now.Add(-time.Hour), map[string]any{"Name": "Acme"})}
	for i := 0; i < 150; i++ {
		records = append(records, record(fmt.Sprintf("dup-%03d", i), now, map[string]any{"Name": "Acme"}))
	}
	group := &models.DuplicateGroup{Records: records, MatchScore: 100, GroupKey: "k", IsExactMatch: true}

	consolidator := &fakeConsolidator{failNext: 1}
	executor := NewExecutor(testLogger(), consolidator, &fakeNoteWriter{})

	result := executor.Merge(context.Background(), group, models.DedupeConfig{MasterStrategy: models.MasterStrategyOldestCreated})

	// first batch of 100 fails, second batch of 50 still runs
	assert.Equal(t, "master", result.MasterID)
	assert.Equal(t, 50, result.RecordsMerged)
	require.Len(t, result.Errors, 1)
	require.Len(t, consolidator.calls, 1)
	assert.Len(t, consolidator.calls[0].duplicateIDs, 50)
}

func TestMerge_SurvivorValuesCarryToFirstSuccessfulSubBatch(t *testing.T) {
	now := time.Now()
	records := []models.Record{record("master", now.Add(-time.Hour), map[string]any{"Name": "Acme"})}
	for i := 0; i < 149; i++ {
		records = append(records, record(fmt.Sprintf("dup-%03d", i), now, map[string]any{"Name": "Acme"}))
	}
	// the last duplicate is the only record holding a fax number
	records = append(records, record("dup-149", now, map[string]any{"Name": "Acme", "Fax": "415-555-9999"}))
	group := &models.DuplicateGroup{Records: records, MatchScore: 100, GroupKey: "k", IsExactMatch: true}

	consolidator := &fakeConsolidator{failNext: 1}
	executor := NewExecutor(testLogger(), consolidator, &fakeNoteWriter{})

	result := executor.Merge(context.Background(), group, models.DedupeConfig{MasterStrategy: models.MasterStrategyOldestCreated})

	// the first sub-batch failed, so the second one absorbs dup-149 and must
	// still deliver its fax to the master
	assert.Equal(t, 50, result.RecordsMerged)
	require.Len(t, result.Errors, 1)
	require.Len(t, consolidator.calls, 1)
	assert.Contains(t, consolidator.calls[0].duplicateIDs, "dup-149")
	require.Contains(t, consolidator.calls[0].overwrites, "Fax")
	assert.Equal(t, "415-555-9999", consolidator.calls[0].overwrites["Fax"].String())
}

func TestMerge_SurvivorValuesAppliedExactlyOnce(t *testing.T) {
	now := time.Now()
	records := []models.Record{record("master", now.Add(-time.Hour), map[string]any{"Name": "Acme"})}
	for i := 0; i < 149; i++ {
		records = append(records, record(fmt.Sprintf("dup-%03d", i), now, map[string]any{"Name": "Acme"}))
	}
	records = append(records, record("dup-149", now, map[string]any{"Name": "Acme", "Fax": "415-555-9999"}))
	group := &models.DuplicateGroup{Records: records, MatchScore: 100, GroupKey: "k", IsExactMatch: true}

	consolidator := &fakeConsolidator{}
	executor := NewExecutor(testLogger(), consolidator, &fakeNoteWriter{})

	result := executor.Merge(context.Background(), group, models.DedupeConfig{MasterStrategy: models.MasterStrategyOldestCreated})

	assert.Equal(t, 150, result.RecordsMerged)
	require.Len(t, consolidator.calls, 2)
	require.Contains(t, consolidator.calls[0].overwrites, "Fax")
	assert.Nil(t, consolidator.calls[1].overwrites, "overwrites are cleared once a sub-batch applies them")
}

func TestMerge_TotalFailureStillWellFormed(t *testing.T) {
	now := time.Now()
	group := &models.DuplicateGroup{
		Records: []models.Record{
			record("A", now, map[string]any{"Name": "Acme"}),
			record("B", now, map[string]any{"Name": "Acme"}),
		},
		MatchScore: 100,
		GroupKey:   "k",
	}

	consolidator := &fakeConsolidator{failNext: 10}
	executor := NewExecutor(testLogger(), consolidator, &fakeNoteWriter{})

	result := executor.Merge(context.Background(), group, models.DedupeConfig{})

	assert.Equal(t, 0, result.RecordsMerged)
	assert.NotEmpty(t, result.Errors)
	assert.Equal(t, "A", result.MasterID)
}

func TestMerge_SingletonGroupIsNoop(t *testing.T) {
	group := &models.DuplicateGroup{
		Records:    []models.Record{record("A", time.Now(), map[string]any{"Name": "Acme"})},
		MatchScore: 100,
		GroupKey:   "k",
	}

	consolidator := &fakeConsolidator{}
	noteWriter := &fakeNoteWriter{}
	executor := NewExecutor(testLogger(), consolidator, noteWriter)

	result := executor.Merge(context.Background(), group, models.DedupeConfig{})

	assert.Equal(t, 0, result.RecordsMerged)
	assert.Empty(t, result.Errors)
	assert.Empty(t, consolidator.calls)
	assert.Empty(t, noteWriter.notes)
}

func TestMerge_NoteFailureDoesNotBlockConsolidation(t *testing.T) {
	now := time.Now()
	group := &models.DuplicateGroup{
		Records: []models.Record{
			record("A", now, map[string]any{"Name": "Acme"}),
			record("B", now, map[string]any{"Name": "Acme"}),
		},
		MatchScore: 100,
		GroupKey:   "k",
	}

	executor := NewExecutor(testLogger(), &fakeConsolidator{}, &fakeNoteWriter{err: fmt.Errorf("notes store down")})

	result := executor.Merge(context.Background(), group, models.DedupeConfig{})

	assert.Equal(t, 1, result.RecordsMerged)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "audit note")
}

func TestMergeDeterministicMaster(t *testing.T) {
	now := time.Now()
	group := &models.DuplicateGroup{
		Records: []models.Record{
			record("A", now, map[string]any{"Name": "Acme"}),
			record("B", now, map[string]any{"Name": "Acme"}),
		},
	}

	first := group.Master(models.MasterStrategyOldestCreated)
	second := group.Master(models.MasterStrategyOldestCreated)

	require.NotNil(t, first)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "A", first.ID, "ties resolve to first-seen order")
}
