// Package record persists the generic record population that deduplication
// jobs scan and consolidate.
package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/database"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// Repository handles record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type recordRow struct {
	ID         string    `db:"id"`
	TenantID   string    `db:"tenant_id"`
	ObjectType string    `db:"object_type"`
	Fields     []byte    `db:"fields"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row *recordRow) toModel() (*models.Record, error) {
	fields, err := models.FieldsFromJSON(row.Fields)
	if err != nil {
		return nil, err
	}
	return &models.Record{
		ID:         row.ID,
		TenantID:   row.TenantID,
		ObjectType: row.ObjectType,
		Fields:     fields,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// Create inserts a record
func (r *Repository) Create(ctx context.Context, record *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Create")
	defer span.End()

	fields, err := json.Marshal(record.Fields)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "failed to encode record fields: %v", err)
	}

	query := `
		INSERT INTO records (id, tenant_id, object_type, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, query, record.ID, record.TenantID, record.ObjectType, fields, createdAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   record.TenantID,
			"object_type": record.ObjectType,
			"record_id":   record.ID,
		}).Error("Failed to insert record")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert record: %v", err)
	}
	return nil
}

// FetchPage returns up to limit live records with ids greater than afterID,
// ordered by id. Absorbed and deleted records are excluded, so a resumed
// cursor never revisits them.
func (r *Repository) FetchPage(ctx context.Context, tenantID, objectType, afterID string, limit int) ([]models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.FetchPage")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "object_type", "fields", "created_at")
	sb.From("records")
	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.Equal("object_type", objectType),
		sb.IsNull("deleted_at"),
		sb.IsNull("merged_into"),
	}
	if afterID != "" {
		where = append(where, sb.GreaterThan("id", afterID))
	}
	sb.Where(where...)
	sb.OrderBy("id")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   tenantID,
			"object_type": objectType,
			"after_id":    afterID,
		}).Error("Failed to fetch record page")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to fetch records: %v", err)
	}

	records := make([]models.Record, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toModel()
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("record_id", rows[i].ID).Error("Failed to decode record fields")
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to decode record %s: %v", rows[i].ID, err)
		}
		records = append(records, *record)
	}
	return records, nil
}

// Count returns the number of live records for the object type
func (r *Repository) Count(ctx context.Context, tenantID, objectType string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("object_type", objectType),
		sb.IsNull("deleted_at"),
		sb.IsNull("merged_into"),
	)

	query, args := sb.Build()
	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":   tenantID,
			"object_type": objectType,
		}).Error("Failed to count records")
		return 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to count records: %v", err)
	}
	return count, nil
}

// Consolidate absorbs the duplicates into the master in one transaction:
// survivor values merge into the master's attribute bag, then every
// duplicate is marked merged and soft-deleted.
func (r *Repository) Consolidate(ctx context.Context, tenantID, objectType, masterID string, duplicateIDs []string, overwrites map[string]models.Value) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Consolidate")
	defer span.End()

	if len(duplicateIDs) == 0 {
		return nil
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   tenantID,
		"object_type": objectType,
		"master_id":   masterID,
		"duplicates":  len(duplicateIDs),
	})

	ctxTx, tx, err := r.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		log.WithError(err).Error("Failed to open consolidation transaction")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to open transaction: %v", err)
	}
	defer tx.Rollback(ctxTx)

	if len(overwrites) > 0 {
		patch, err := json.Marshal(overwrites)
		if err != nil {
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to encode survivor values: %v", err)
		}

		query := `
			UPDATE records
			SET fields = fields || $1::jsonb, updated_at = NOW()
			WHERE tenant_id = $2 AND object_type = $3 AND id = $4 AND deleted_at IS NULL
		`
		result, err := tx.ExecContext(ctxTx, query, patch, tenantID, objectType, masterID)
		if err != nil {
			log.WithError(err).Error("Failed to apply survivor values to master")
			return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update master %s: %v", masterID, err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return httperror.NewHTTPErrorf(http.StatusNotFound, "master record %s not found", masterID)
		}
	}

	query := `
		UPDATE records
		SET merged_into = $1, deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $2 AND object_type = $3 AND id = ANY($4) AND deleted_at IS NULL
	`
	result, err := tx.ExecContext(ctxTx, query, masterID, tenantID, objectType, pq.Array(duplicateIDs))
	if err != nil {
		log.WithError(err).Error("Failed to absorb duplicate records")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to absorb duplicates into %s: %v", masterID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to read absorbed row count: %v", err)
	}
	if affected != int64(len(duplicateIDs)) {
		log.WithField("absorbed", affected).Warn("Some duplicates were already absorbed or deleted")
		return httperror.NewHTTPErrorf(http.StatusConflict, "absorbed %d of %d duplicates into %s", affected, len(duplicateIDs), masterID)
	}

	if err := tx.Commit(ctxTx); err != nil {
		log.WithError(err).Error("Failed to commit consolidation")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to commit consolidation: %v", err)
	}

	log.Debug("Consolidated duplicate records")
	return nil
}
