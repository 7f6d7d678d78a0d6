// Package dedupejob persists deduplication job state across execution cycles
package dedupejob

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

var jobColumns = []string{
	"id", "tenant_id", "object_type", "status", "config",
	"records_processed", "duplicates_found", "records_merged",
	"cursor", "errors", "started_at", "completed_at", "created_at", "updated_at",
}

// Repository handles dedupe job persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a dedupe job repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new job
func (r *Repository) Create(ctx context.Context, job *models.DedupeJob) error {
	ctx, span := tracing.StartSpan(ctx, "dedupejob.Repository.Create")
	defer span.End()

	query := `
		INSERT INTO dedupe_jobs (
			id, tenant_id, object_type, status, config,
			records_processed, duplicates_found, records_merged,
			cursor, errors, started_at, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.TenantID, job.ObjectType, job.Status, job.Config,
		job.RecordsProcessed, job.DuplicatesFound, job.RecordsMerged,
		job.Cursor, job.Errors, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": job.TenantID,
			"job_id":    job.ID,
		}).Error("Failed to insert dedupe job")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert dedupe job: %v", err)
	}
	return nil
}

// Get returns a job by id scoped to the tenant
func (r *Repository) Get(ctx context.Context, tenantID, jobID string) (*models.DedupeJob, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupejob.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(jobColumns...)
	sb.From("dedupe_jobs")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("id", jobID),
	)

	query, args := sb.Build()
	var job models.DedupeJob
	if err := r.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "dedupe job %s not found", jobID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"job_id":    jobID,
		}).Error("Failed to get dedupe job")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to get dedupe job: %v", err)
	}
	return &job, nil
}

// Update persists the mutable job state. Called at every chunk boundary.
func (r *Repository) Update(ctx context.Context, job *models.DedupeJob) error {
	ctx, span := tracing.StartSpan(ctx, "dedupejob.Repository.Update")
	defer span.End()

	query := `
		UPDATE dedupe_jobs
		SET status = $1,
			records_processed = $2,
			duplicates_found = $3,
			records_merged = $4,
			cursor = $5,
			errors = $6,
			started_at = $7,
			completed_at = $8,
			updated_at = NOW()
		WHERE tenant_id = $9 AND id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		job.Status, job.RecordsProcessed, job.DuplicatesFound, job.RecordsMerged,
		job.Cursor, job.Errors, job.StartedAt, job.CompletedAt,
		job.TenantID, job.ID,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": job.TenantID,
			"job_id":    job.ID,
		}).Error("Failed to update dedupe job")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update dedupe job: %v", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "dedupe job %s not found", job.ID)
	}
	return nil
}

// List returns the tenant's jobs, newest first
func (r *Repository) List(ctx context.Context, tenantID string, limit, offset int) ([]models.DedupeJob, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupejob.Repository.List")
	defer span.End()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(jobColumns...)
	sb.From("dedupe_jobs")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	query, args := sb.Build()
	var jobs []models.DedupeJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("Failed to list dedupe jobs")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list dedupe jobs: %v", err)
	}
	return jobs, nil
}
