// Package metrics provides Prometheus metrics for the Sorrel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsProcessed tracks records scanned by deduplication jobs
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "dedupe",
			Name:      "records_processed_total",
			Help:      "Total number of records scanned by deduplication jobs",
		},
		[]string{"tenant_id", "object_type"},
	)

	// DuplicatesFound tracks duplicate records discovered
	DuplicatesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "dedupe",
			Name:      "duplicates_found_total",
			Help:      "Total number of duplicate records discovered",
		},
		[]string{"tenant_id", "object_type", "match_kind"},
	)

	// RecordsMerged tracks records absorbed into a master record
	RecordsMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "dedupe",
			Name:      "records_merged_total",
			Help:      "Total number of records absorbed into a master record",
		},
		[]string{"tenant_id", "object_type"},
	)

	// JobsTotal tracks job completions by terminal status
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "dedupe",
			Name:      "jobs_total",
			Help:      "Total number of deduplication jobs by terminal status",
		},
		[]string{"tenant_id", "object_type", "status"},
	)

	// ChunkDuration tracks how long one chunk takes to group and merge
	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sorrel",
			Subsystem: "dedupe",
			Name:      "chunk_duration_seconds",
			Help:      "Duration of one chunk of grouping and merging in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tenant_id", "object_type"},
	)

	// CycleYields tracks executions paused at the resource budget
	CycleYields = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sorrel",
			Subsystem: "dedupe",
			Name:      "cycle_yields_total",
			Help:      "Total number of execution cycles paused at the resource budget",
		},
		[]string{"tenant_id", "object_type"},
	)
)
