package processor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/grouping"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
)

type fakeRecordStore struct {
	records  []models.Record
	fetchErr error
}

func (f *fakeRecordStore) FetchPage(ctx context.Context, tenantID, objectType, afterID string, limit int) ([]models.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	start := 0
	if afterID != "" {
		for i, rec := range f.records {
			if rec.ID == afterID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(f.records))
	if start >= len(f.records) {
		return nil, nil
	}
	return f.records[start:end], nil
}

func (f *fakeRecordStore) Count(ctx context.Context, tenantID, objectType string) (int64, error) {
	return int64(len(f.records)), nil
}

type fakeJobStore struct {
	jobs map[string]*models.DedupeJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*models.DedupeJob)}
}

func (f *fakeJobStore) Create(ctx context.Context, job *models.DedupeJob) error {
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeJobStore) Get(ctx context.Context, tenantID, jobID string) (*models.DedupeJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) Update(ctx context.Context, job *models.DedupeJob) error {
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

type fakeMerger struct {
	calls   int
	perCall func(group *models.DuplicateGroup) *models.MergeResult
}

func (f *fakeMerger) Merge(ctx context.Context, group *models.DuplicateGroup, cfg models.DedupeConfig) *models.MergeResult {
	f.calls++
	if f.perCall != nil {
		return f.perCall(group)
	}
	master := group.Master(cfg.MasterStrategy)
	return &models.MergeResult{MasterID: master.ID, RecordsMerged: group.Size() - 1}
}

type fakeScheduler struct {
	submissions []string
}

func (f *fakeScheduler) Submit(ctx context.Context, tenantID, jobID string) error {
	f.submissions = append(f.submissions, jobID)
	return nil
}

type fixedBudget struct {
	fraction float64
}

func (b *fixedBudget) Spend(int) {}

func (b *fixedBudget) FractionConsumed() float64 { return b.fraction }

func testProcessor(store *fakeRecordStore, jobs *fakeJobStore, merger *fakeMerger, scheduler *fakeScheduler) *DedupeProcessor {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine := grouping.NewEngine(logger, normalize.New())
	return NewDedupeProcessor(logger, store, jobs, engine, merger, scheduler, nil)
}

func makeRecords(count int, name string) []models.Record {
	records := make([]models.Record, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, models.Record{
			ID:         fmt.Sprintf("rec-%04d", i),
			TenantID:   "tenant-1",
			ObjectType: "account",
			Fields: map[string]models.Value{
				"Name":  models.StringValue(fmt.Sprintf("%s %d", name, i)),
				"Phone": models.StringValue(fmt.Sprintf("415-555-%04d", i)),
			},
			CreatedAt: time.Now(),
		})
	}
	return records
}

func testConfig(chunkSize int) models.DedupeConfig {
	cfg := models.DedupeConfig{
		ObjectType: "account",
		FieldSpecs: []models.FieldSpec{
			{Name: "Name", Required: true, MatchType: models.MatchTypeFuzzy},
			{Name: "Phone", MatchType: models.MatchTypeExact},
		},
		ChunkSize: chunkSize,
	}
	cfg.ApplyDefaults()
	return cfg
}

func startJob(t *testing.T, p *DedupeProcessor, cfg models.DedupeConfig) *models.DedupeJob {
	t.Helper()
	job, err := p.StartJob(context.Background(), "tenant-1", cfg)
	require.NoError(t, err)
	return job
}

func TestStartJob(t *testing.T) {
	t.Run("creates queued job and schedules first cycle", func(t *testing.T) {
		jobs := newFakeJobStore()
		scheduler := &fakeScheduler{}
		p := testProcessor(&fakeRecordStore{}, jobs, &fakeMerger{}, scheduler)

		job := startJob(t, p, testConfig(10))

		assert.Equal(t, models.JobStatusQueued, job.Status)
		assert.Equal(t, []string{job.ID}, scheduler.submissions)
		_, err := jobs.Get(context.Background(), "tenant-1", job.ID)
		assert.NoError(t, err)
	})

	t.Run("rejects config without field specs", func(t *testing.T) {
		jobs := newFakeJobStore()
		p := testProcessor(&fakeRecordStore{}, jobs, &fakeMerger{}, &fakeScheduler{})

		_, err := p.StartJob(context.Background(), "tenant-1", models.DedupeConfig{ObjectType: "account"})

		assert.Error(t, err)
		assert.Empty(t, jobs.jobs, "no job state is created on configuration errors")
	})
}

func TestRunCycle_EmptyPopulationCompletesImmediately(t *testing.T) {
	jobs := newFakeJobStore()
	p := testProcessor(&fakeRecordStore{}, jobs, &fakeMerger{}, &fakeScheduler{})
	job := startJob(t, p, testConfig(10))

	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Equal(t, int64(0), result.RecordsProcessed)
	assert.Equal(t, int64(0), result.DuplicatesFound)
	assert.Equal(t, int64(0), result.RecordsMerged)
	assert.NotNil(t, result.CompletedAt)
}

func TestRunCycle_ProcessesWholePopulation(t *testing.T) {
	records := makeRecords(25, "Globex")
	// two exact duplicates of the first record
	dup := records[0]
	dup.ID = "rec-dup-1"
	dup2 := records[0]
	dup2.ID = "rec-dup-2"
	records = append(records, dup, dup2)

	store := &fakeRecordStore{records: records}
	jobs := newFakeJobStore()
	merger := &fakeMerger{}
	p := testProcessor(store, jobs, merger, &fakeScheduler{})
	job := startJob(t, p, testConfig(10))

	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Equal(t, int64(27), result.RecordsProcessed)
	assert.GreaterOrEqual(t, merger.calls, 1)
	assert.NotEmpty(t, result.Cursor)
}

func TestRunCycle_YieldsAtBudgetAndResumes(t *testing.T) {
	store := &fakeRecordStore{records: makeRecords(30, "Initech")}
	jobs := newFakeJobStore()
	scheduler := &fakeScheduler{}
	p := testProcessor(store, jobs, &fakeMerger{}, scheduler)
	job := startJob(t, p, testConfig(10))

	// over the yield threshold after the first chunk
	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, &fixedBudget{fraction: 0.9})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusRunning, result.Status)
	assert.Equal(t, int64(10), result.RecordsProcessed)
	assert.Equal(t, "rec-0009", result.Cursor)
	assert.Len(t, scheduler.submissions, 2, "initial submit plus one continuation")

	// a fresh cycle resumes from the persisted cursor and finishes
	result, err = p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Equal(t, int64(30), result.RecordsProcessed)
}

func TestRunCycle_TerminalJobIsNoop(t *testing.T) {
	store := &fakeRecordStore{records: makeRecords(5, "Acme")}
	jobs := newFakeJobStore()
	p := testProcessor(store, jobs, &fakeMerger{}, &fakeScheduler{})
	job := startJob(t, p, testConfig(10))

	_, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Equal(t, int64(5), result.RecordsProcessed, "counters unchanged on the second cycle")
}

func TestRunCycle_DryRunNeverMerges(t *testing.T) {
	records := makeRecords(5, "Acme")
	dup := records[0]
	dup.ID = "rec-dup-1"
	records = append(records, dup)

	store := &fakeRecordStore{records: records}
	jobs := newFakeJobStore()
	merger := &fakeMerger{}
	p := testProcessor(store, jobs, merger, &fakeScheduler{})

	cfg := testConfig(10)
	cfg.DryRun = true
	job := startJob(t, p, cfg)

	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Equal(t, int64(1), result.DuplicatesFound)
	assert.Equal(t, int64(0), result.RecordsMerged)
	assert.Equal(t, 0, merger.calls)
}

func TestRunCycle_FetchFailureFailsJob(t *testing.T) {
	store := &fakeRecordStore{fetchErr: fmt.Errorf("storage unavailable")}
	jobs := newFakeJobStore()
	p := testProcessor(store, jobs, &fakeMerger{}, &fakeScheduler{})
	job := startJob(t, p, testConfig(10))

	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusFailed, result.Status)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "storage unavailable")
	assert.NotNil(t, result.CompletedAt)
}

func TestRunCycle_MergeErrorsAreCollectedWithoutFailingJob(t *testing.T) {
	records := makeRecords(3, "Acme")
	dup := records[0]
	dup.ID = "rec-dup-1"
	records = append(records, dup)

	store := &fakeRecordStore{records: records}
	jobs := newFakeJobStore()
	merger := &fakeMerger{perCall: func(group *models.DuplicateGroup) *models.MergeResult {
		return &models.MergeResult{RecordsMerged: 0, Errors: []string{"consolidation rejected"}}
	}}
	p := testProcessor(store, jobs, merger, &fakeScheduler{})
	job := startJob(t, p, testConfig(10))

	result, err := p.RunCycle(context.Background(), "tenant-1", job.ID, UnlimitedBudget{})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Contains(t, []string(result.Errors), "consolidation rejected")
	assert.Equal(t, int64(0), result.RecordsMerged)
}

func TestPreview(t *testing.T) {
	records := makeRecords(5, "Acme")
	dup := records[0]
	dup.ID = "rec-dup-1"
	records = append(records, dup)

	store := &fakeRecordStore{records: records}
	merger := &fakeMerger{}
	p := testProcessor(store, newFakeJobStore(), merger, &fakeScheduler{})

	result, err := p.Preview(context.Background(), "tenant-1", testConfig(10), 0)
	require.NoError(t, err)

	assert.Equal(t, int64(6), result.RecordsScanned)
	assert.Equal(t, int64(1), result.DuplicatesFound)
	assert.Len(t, result.Groups, 1)
	assert.Equal(t, 0, merger.calls, "previews never mutate records")
}

func TestCycleBudget(t *testing.T) {
	t.Run("record counter drives the fraction", func(t *testing.T) {
		b := NewCycleBudget(0, 100)
		b.Spend(80)
		assert.InDelta(t, 0.8, b.FractionConsumed(), 0.001)
	})

	t.Run("zero limits never yield", func(t *testing.T) {
		b := NewCycleBudget(0, 0)
		b.Spend(1000000)
		assert.Equal(t, 0.0, b.FractionConsumed())
	})

	t.Run("worst counter wins", func(t *testing.T) {
		b := NewCycleBudget(time.Hour, 10)
		b.Spend(9)
		assert.InDelta(t, 0.9, b.FractionConsumed(), 0.01)
	})
}
