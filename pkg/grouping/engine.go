// Package grouping implements two-phase duplicate grouping: exact-key
// partitioning followed by greedy pairwise fuzzy clustering.
package grouping

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/stem/pkg/tracing"

	"github.com/Ramsey-B/sorrel/pkg/keybuilder"
	"github.com/Ramsey-B/sorrel/pkg/matchers"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
)

// Engine groups a chunk of records into duplicate clusters
type Engine struct {
	logger   ectologger.Logger
	keys     *keybuilder.Builder
	registry *matchers.Registry
}

// NewEngine creates a grouping engine. The strict matcher registry is used
// so email and phone fields only contribute exact matches during the fuzzy
// phase.
func NewEngine(logger ectologger.Logger, normalizer *normalize.Normalizer) *Engine {
	return &Engine{
		logger:   logger,
		keys:     keybuilder.New(normalizer),
		registry: matchers.NewStrictRegistry(normalizer),
	}
}

// NewEngineWithRegistry creates a grouping engine with a caller-supplied
// matcher registry
func NewEngineWithRegistry(logger ectologger.Logger, normalizer *normalize.Normalizer, registry *matchers.Registry) *Engine {
	return &Engine{
		logger:   logger,
		keys:     keybuilder.New(normalizer),
		registry: registry,
	}
}

// GroupChunk clusters the chunk and returns groups keyed by group key.
// Exact groups use the composite key; fuzzy groups use "fuzzy-" plus the
// seed record's id. Every record lands in at most one group.
func (e *Engine) GroupChunk(ctx context.Context, records []models.Record, cfg models.DedupeConfig) (map[string]*models.DuplicateGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "grouping.Engine.GroupChunk")
	defer span.End()

	if len(cfg.FieldSpecs) == 0 {
		return nil, fmt.Errorf("at least one field spec is required for grouping")
	}

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"object_type":  cfg.ObjectType,
		"record_count": len(records),
	})

	groups := make(map[string]*models.DuplicateGroup)

	remaining := e.groupExact(records, cfg, groups)
	exactGroups := len(groups)

	e.groupFuzzy(remaining, cfg, groups)

	log.WithFields(map[string]any{
		"exact_groups": exactGroups,
		"fuzzy_groups": len(groups) - exactGroups,
	}).Debug("grouped chunk")

	return groups, nil
}

// groupExact partitions records by composite key and promotes partitions of
// two or more into exact groups. Records left over (unique keys or an empty
// key from a missing required field) are returned for the fuzzy phase.
func (e *Engine) groupExact(records []models.Record, cfg models.DedupeConfig, groups map[string]*models.DuplicateGroup) []models.Record {
	keys := make([]string, len(records))
	partitions := make(map[string][]models.Record)

	for i, record := range records {
		key := e.keys.BuildCompositeKey(&record, cfg.FieldSpecs)
		keys[i] = key
		if key == "" {
			continue
		}
		partitions[key] = append(partitions[key], record)
	}

	for key, members := range partitions {
		if len(members) < 2 {
			continue
		}
		groups[key] = &models.DuplicateGroup{
			Records:      members,
			MatchScore:   100,
			GroupKey:     key,
			IsExactMatch: true,
		}
	}

	// the residual keeps input order for the fuzzy phase
	var remaining []models.Record
	for i, record := range records {
		if keys[i] == "" || len(partitions[keys[i]]) < 2 {
			remaining = append(remaining, record)
		}
	}
	return remaining
}

// groupFuzzy performs greedy single-link clustering over the residual
// records. Skipped when fewer than two field specs are configured since a
// single dimension cannot support a meaningful weighted score.
func (e *Engine) groupFuzzy(records []models.Record, cfg models.DedupeConfig, groups map[string]*models.DuplicateGroup) {
	if len(cfg.FieldSpecs) < 2 {
		return
	}

	consumed := make([]bool, len(records))

	for i := range records {
		if consumed[i] {
			continue
		}

		members := []models.Record{records[i]}
		maxScore := 0.0

		for j := i + 1; j < len(records); j++ {
			if consumed[j] {
				continue
			}

			score := e.scorePair(&records[i], &records[j], cfg.FieldSpecs)
			if score >= cfg.FuzzyThreshold {
				members = append(members, records[j])
				consumed[j] = true
				if score > maxScore {
					maxScore = score
				}
			}
		}

		if len(members) < 2 {
			continue
		}

		key := "fuzzy-" + records[i].ID
		groups[key] = &models.DuplicateGroup{
			Records:      members,
			MatchScore:   maxScore,
			GroupKey:     key,
			IsExactMatch: false,
		}
	}
}

// scorePair computes the weighted field score for two records. Fields null
// on both sides are excluded from the numerator and the denominator; a spec
// weight of zero falls back to the built-in weight table.
func (e *Engine) scorePair(r1, r2 *models.Record, specs []models.FieldSpec) float64 {
	var weightedSum, totalWeight float64

	for _, spec := range specs {
		v1 := r1.Get(spec.Name)
		v2 := r2.Get(spec.Name)
		if v1.IsNull() && v2.IsNull() {
			continue
		}

		weight := spec.Weight
		if weight <= 0 {
			weight = matchers.WeightFor(spec.Name)
		}

		weightedSum += e.registry.Score(spec.Name, v1, v2) * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}
