// Package keybuilder derives deterministic grouping keys from records
package keybuilder

import (
	"strings"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
)

// Separator joins key parts; normalized output can never contain it
const Separator = "|#|"

// Builder assembles composite keys using a shared normalizer
type Builder struct {
	normalizer *normalize.Normalizer
}

// New creates a Builder
func New(n *normalize.Normalizer) *Builder {
	return &Builder{normalizer: n}
}

// BuildCompositeKey produces the exact-match partition key for a record.
// Field specs are applied in input order so the same spec list always yields
// the same key shape. A missing required field makes the key empty, which
// removes the record from exact-key grouping.
func (b *Builder) BuildCompositeKey(record *models.Record, specs []models.FieldSpec) string {
	parts := make([]string, 0, len(specs))

	for _, spec := range specs {
		value := record.Get(spec.Name)
		if value.IsNull() {
			if spec.Required {
				return ""
			}
			// optional nulls contribute an empty part, so a null and a
			// blank value produce the same key
			parts = append(parts, "")
			continue
		}

		parts = append(parts, b.normalizePart(value.String(), spec.MatchType))
	}

	return strings.Join(parts, Separator)
}

func (b *Builder) normalizePart(raw string, matchType models.MatchType) string {
	switch matchType {
	case models.MatchTypePhonetic:
		return b.normalizer.Skeleton(raw)
	case models.MatchTypeFuzzy:
		return b.normalizer.Alphanumeric(raw)
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}
