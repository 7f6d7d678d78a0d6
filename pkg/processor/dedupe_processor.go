// Package processor drives deduplication jobs over a record population in
// bounded chunks, persisting job state at every chunk boundary so a later
// execution cycle can resume from the cursor.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sorrel/pkg/grouping"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

var validate = validator.New()

// DedupeProcessor orchestrates deduplication jobs
type DedupeProcessor struct {
	logger    ectologger.Logger
	records   RecordStore
	jobs      JobStore
	engine    *grouping.Engine
	merger    GroupMerger
	scheduler Scheduler
	notifier  Notifier
}

// NewDedupeProcessor creates a dedupe processor. The notifier may be nil.
func NewDedupeProcessor(
	logger ectologger.Logger,
	records RecordStore,
	jobs JobStore,
	engine *grouping.Engine,
	merger GroupMerger,
	scheduler Scheduler,
	notifier Notifier,
) *DedupeProcessor {
	return &DedupeProcessor{
		logger:    logger,
		records:   records,
		jobs:      jobs,
		engine:    engine,
		merger:    merger,
		scheduler: scheduler,
		notifier:  notifier,
	}
}

// StartJob validates the configuration, persists a queued job, and requests
// the first execution cycle. Configuration errors surface immediately and no
// job state is created.
func (p *DedupeProcessor) StartJob(ctx context.Context, tenantID string, cfg models.DedupeConfig) (*models.DedupeJob, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.DedupeProcessor.StartJob")
	defer span.End()

	cfg.ApplyDefaults()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid dedupe configuration: %w", err)
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dedupe configuration: %w", err)
	}

	now := time.Now().UTC()
	job := &models.DedupeJob{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		ObjectType: cfg.ObjectType,
		Status:     models.JobStatusQueued,
		Config:     configJSON,
		Errors:     models.JSONStrings{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create dedupe job: %w", err)
	}

	if err := p.scheduler.Submit(ctx, tenantID, job.ID); err != nil {
		return nil, fmt.Errorf("failed to schedule dedupe job %s: %w", job.ID, err)
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   tenantID,
		"job_id":      job.ID,
		"object_type": cfg.ObjectType,
		"dry_run":     cfg.DryRun,
	}).Info("started dedupe job")

	return job, nil
}

// RunCycle executes chunks for a job until the population is exhausted or
// the resource budget says to yield. On yield the job stays Running and a
// continuation is submitted to the scheduler. Terminal jobs are a no-op.
func (p *DedupeProcessor) RunCycle(ctx context.Context, tenantID, jobID string, budget ResourceBudget) (*models.DedupeJob, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.DedupeProcessor.RunCycle")
	defer span.End()

	job, err := p.jobs.Get(ctx, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dedupe job %s: %w", jobID, err)
	}
	if job.IsTerminal() {
		return job, nil
	}

	cfg, err := job.DedupeConfig()
	if err != nil {
		return p.failJob(ctx, job, fmt.Errorf("invalid stored configuration: %w", err))
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   tenantID,
		"job_id":      job.ID,
		"object_type": job.ObjectType,
	})

	if job.Status == models.JobStatusQueued {
		now := time.Now().UTC()
		job.Status = models.JobStatusRunning
		job.StartedAt = &now
		if err := p.jobs.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to mark job %s running: %w", job.ID, err)
		}
		p.notifyStatus(ctx, job)
	}

	for {
		chunk, err := p.records.FetchPage(ctx, tenantID, job.ObjectType, job.Cursor, cfg.ChunkSize)
		if err != nil {
			return p.failJob(ctx, job, fmt.Errorf("failed to fetch records after %q: %w", job.Cursor, err))
		}

		if len(chunk) == 0 {
			return p.completeJob(ctx, job)
		}

		found, merged, mergeErrors, err := p.processChunk(ctx, job, *cfg, chunk)
		if err != nil {
			return p.failJob(ctx, job, err)
		}

		job.RecordsProcessed += int64(len(chunk))
		job.DuplicatesFound += found
		job.RecordsMerged += merged
		job.Errors = append(job.Errors, mergeErrors...)
		job.Cursor = chunk[len(chunk)-1].ID
		job.UpdatedAt = time.Now().UTC()

		if err := p.jobs.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to persist job %s after chunk: %w", job.ID, err)
		}

		metrics.RecordsProcessed.WithLabelValues(tenantID, job.ObjectType).Add(float64(len(chunk)))
		budget.Spend(len(chunk))

		if len(chunk) < cfg.ChunkSize {
			return p.completeJob(ctx, job)
		}

		if budget.FractionConsumed() >= YieldFraction {
			metrics.CycleYields.WithLabelValues(tenantID, job.ObjectType).Inc()
			log.WithFields(map[string]any{
				"cursor":            job.Cursor,
				"records_processed": job.RecordsProcessed,
			}).Info("yielding at resource budget, scheduling continuation")

			if err := p.scheduler.Submit(ctx, tenantID, job.ID); err != nil {
				return p.failJob(ctx, job, fmt.Errorf("failed to schedule continuation: %w", err))
			}
			return job, nil
		}
	}
}

// PreviewResult is the outcome of a dry-run scan
type PreviewResult struct {
	Groups          map[string]*models.DuplicateGroup `json:"groups"`
	RecordsScanned  int64                             `json:"records_scanned"`
	DuplicatesFound int64                             `json:"duplicates_found"`
}

// Preview scans up to maxRecords without creating a job or mutating any
// record and returns the duplicate groups it finds. A zero maxRecords scans
// the whole population.
func (p *DedupeProcessor) Preview(ctx context.Context, tenantID string, cfg models.DedupeConfig, maxRecords int64) (*PreviewResult, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.DedupeProcessor.Preview")
	defer span.End()

	cfg.ApplyDefaults()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid dedupe configuration: %w", err)
	}

	result := &PreviewResult{Groups: make(map[string]*models.DuplicateGroup)}
	cursor := ""

	for {
		chunk, err := p.records.FetchPage(ctx, tenantID, cfg.ObjectType, cursor, cfg.ChunkSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch records after %q: %w", cursor, err)
		}
		if len(chunk) == 0 {
			return result, nil
		}

		groups, err := p.engine.GroupChunk(ctx, chunk, cfg)
		if err != nil {
			return nil, err
		}
		for key, group := range groups {
			if !group.HasDuplicates() {
				continue
			}
			result.Groups[key] = group
			result.DuplicatesFound += int64(group.Size() - 1)
		}

		result.RecordsScanned += int64(len(chunk))
		cursor = chunk[len(chunk)-1].ID

		if len(chunk) < cfg.ChunkSize {
			return result, nil
		}
		if maxRecords > 0 && result.RecordsScanned >= maxRecords {
			return result, nil
		}
	}
}

// processChunk groups one chunk and merges each cluster. A panic inside
// grouping or merging fails the whole job rather than poisoning later
// chunks.
func (p *DedupeProcessor) processChunk(ctx context.Context, job *models.DedupeJob, cfg models.DedupeConfig, chunk []models.Record) (found, merged int64, mergeErrors []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing chunk after %q: %v", job.Cursor, r)
		}
	}()

	started := time.Now()
	defer func() {
		metrics.ChunkDuration.WithLabelValues(job.TenantID, job.ObjectType).Observe(time.Since(started).Seconds())
	}()

	groups, err := p.engine.GroupChunk(ctx, chunk, cfg)
	if err != nil {
		return 0, 0, nil, err
	}

	for _, group := range groups {
		if !group.HasDuplicates() {
			continue
		}

		found += int64(group.Size() - 1)
		metrics.DuplicatesFound.WithLabelValues(job.TenantID, job.ObjectType, matchKind(group)).Add(float64(group.Size() - 1))

		if cfg.DryRun {
			continue
		}

		result := p.merger.Merge(ctx, group, cfg)
		merged += int64(result.RecordsMerged)
		mergeErrors = append(mergeErrors, result.Errors...)
		metrics.RecordsMerged.WithLabelValues(job.TenantID, job.ObjectType).Add(float64(result.RecordsMerged))

		if p.notifier != nil {
			p.notifier.GroupMerged(ctx, job, group, result)
		}
	}

	return found, merged, mergeErrors, nil
}

func (p *DedupeProcessor) completeJob(ctx context.Context, job *models.DedupeJob) (*models.DedupeJob, error) {
	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err := p.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to mark job %s completed: %w", job.ID, err)
	}

	metrics.JobsTotal.WithLabelValues(job.TenantID, job.ObjectType, string(job.Status)).Inc()
	p.notifyStatus(ctx, job)

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":         job.TenantID,
		"job_id":            job.ID,
		"records_processed": job.RecordsProcessed,
		"duplicates_found":  job.DuplicatesFound,
		"records_merged":    job.RecordsMerged,
	}).Info("dedupe job completed")

	return job, nil
}

// failJob marks the job failed and keeps the partial progress already
// committed. The returned error is nil: a job failure is a terminal job
// state, not a transport error.
func (p *DedupeProcessor) failJob(ctx context.Context, job *models.DedupeJob, cause error) (*models.DedupeJob, error) {
	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.Errors = append(job.Errors, cause.Error())
	job.CompletedAt = &now
	job.UpdatedAt = now

	if err := p.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}

	metrics.JobsTotal.WithLabelValues(job.TenantID, job.ObjectType, string(job.Status)).Inc()
	p.notifyStatus(ctx, job)

	p.logger.WithContext(ctx).WithError(cause).WithFields(map[string]any{
		"tenant_id": job.TenantID,
		"job_id":    job.ID,
	}).Error("dedupe job failed")

	return job, nil
}

func (p *DedupeProcessor) notifyStatus(ctx context.Context, job *models.DedupeJob) {
	if p.notifier != nil {
		p.notifier.JobStatusChanged(ctx, job)
	}
}

func matchKind(group *models.DuplicateGroup) string {
	if group.IsExactMatch {
		return "exact"
	}
	return "fuzzy"
}
