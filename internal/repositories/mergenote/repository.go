// Package mergenote persists the audit notes written for every merge
package mergenote

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// Repository handles merge note persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a merge note repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// WriteMergeNote inserts the audit note for one consolidated group
func (r *Repository) WriteMergeNote(ctx context.Context, note *models.MergeNote) error {
	ctx, span := tracing.StartSpan(ctx, "mergenote.Repository.WriteMergeNote")
	defer span.End()

	query := `
		INSERT INTO merge_notes (
			id, tenant_id, object_type, master_id, merged_ids,
			conflicts, non_mergeable, summary, actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.TenantID, note.ObjectType, note.MasterID, note.MergedIDs,
		note.Conflicts, note.NonMergeable, note.Summary, note.Actor, note.CreatedAt,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": note.TenantID,
			"master_id": note.MasterID,
		}).Error("Failed to insert merge note")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert merge note: %v", err)
	}
	return nil
}

// FindByMaster returns the audit notes for a master record, newest first
func (r *Repository) FindByMaster(ctx context.Context, tenantID, masterID string) ([]models.MergeNote, error) {
	ctx, span := tracing.StartSpan(ctx, "mergenote.Repository.FindByMaster")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "object_type", "master_id", "merged_ids", "conflicts", "non_mergeable", "summary", "actor", "created_at")
	sb.From("merge_notes")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("master_id", masterID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(100)

	query, args := sb.Build()
	var notes []models.MergeNote
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"master_id": masterID,
		}).Error("Failed to find merge notes")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to find merge notes: %v", err)
	}
	return notes, nil
}
