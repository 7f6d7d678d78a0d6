package processor

import (
	"context"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// RecordStore provides cursor-paged access to the record population
type RecordStore interface {
	// FetchPage returns up to limit records with ids greater than afterID,
	// ordered by id. An empty afterID starts from the beginning.
	FetchPage(ctx context.Context, tenantID, objectType, afterID string, limit int) ([]models.Record, error)
	Count(ctx context.Context, tenantID, objectType string) (int64, error)
}

// JobStore persists job state across execution cycles
type JobStore interface {
	Create(ctx context.Context, job *models.DedupeJob) error
	Get(ctx context.Context, tenantID, jobID string) (*models.DedupeJob, error)
	Update(ctx context.Context, job *models.DedupeJob) error
}

// GroupMerger consolidates one duplicate group
type GroupMerger interface {
	Merge(ctx context.Context, group *models.DuplicateGroup, cfg models.DedupeConfig) *models.MergeResult
}

// Scheduler requests a future execution cycle for a job
type Scheduler interface {
	Submit(ctx context.Context, tenantID, jobID string) error
}

// ResourceBudget models the consumable quota for one execution cycle. The
// processor spends against it at chunk boundaries and yields before any
// counter runs out.
type ResourceBudget interface {
	// Spend records work performed during this cycle
	Spend(records int)
	// FractionConsumed returns the highest consumed fraction across all
	// counters, from 0 to 1
	FractionConsumed() float64
}

// Notifier publishes job lifecycle and merge events. Implementations must
// tolerate being called on the hot path; failures are logged, not returned.
type Notifier interface {
	JobStatusChanged(ctx context.Context, job *models.DedupeJob)
	GroupMerged(ctx context.Context, job *models.DedupeJob, group *models.DuplicateGroup, result *models.MergeResult)
}
