// Package matchers scores pairs of field values using field-semantic rules.
// Matchers are selected by field-name heuristics through an ordered registry
// so callers can swap in custom registries.
package matchers

import (
	"strings"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
	"github.com/Ramsey-B/sorrel/pkg/similarity"
)

// Scorer compares two field values and returns a score from 0 to 100
type Scorer interface {
	Score(a, b models.Value) float64
}

// ScorerFunc adapts a plain function to the Scorer interface
type ScorerFunc func(a, b models.Value) float64

func (f ScorerFunc) Score(a, b models.Value) float64 {
	return f(a, b)
}

type entry struct {
	matches func(fieldName string) bool
	scorer  Scorer
}

// Registry dispatches a field name to its scorer. Entries are checked in
// registration order; the first matching predicate wins.
type Registry struct {
	entries  []entry
	fallback Scorer
}

// Register appends a predicate/scorer pair
func (r *Registry) Register(matches func(fieldName string) bool, scorer Scorer) {
	r.entries = append(r.entries, entry{matches: matches, scorer: scorer})
}

// ScorerFor returns the scorer for the given field name
func (r *Registry) ScorerFor(fieldName string) Scorer {
	for _, e := range r.entries {
		if e.matches(fieldName) {
			return e.scorer
		}
	}
	return r.fallback
}

// Score compares two values under the scorer selected for fieldName
func (r *Registry) Score(fieldName string, a, b models.Value) float64 {
	return r.ScorerFor(fieldName).Score(a, b)
}

// NewRegistry builds the default registry: email, name, and address fields
// get their category scorers, phone fields compare digits only, and
// everything else falls back to generic text scoring.
func NewRegistry(n *normalize.Normalizer) *Registry {
	generic := &GenericScorer{Normalizer: n}

	r := &Registry{fallback: generic}
	r.Register(IsEmailField, &EmailScorer{Normalizer: n, Fallback: generic})
	r.Register(IsPhoneField, &PhoneScorer{Normalizer: n})
	r.Register(IsNameField, &NameScorer{Normalizer: n})
	r.Register(IsAddressField, &AddressScorer{Normalizer: n})
	return r
}

// NewStrictRegistry builds the registry used during fuzzy grouping, where
// email fields must match exactly after normalization and phone fields must
// match digit for digit. Other categories score as in NewRegistry.
func NewStrictRegistry(n *normalize.Normalizer) *Registry {
	generic := &GenericScorer{Normalizer: n}

	r := &Registry{fallback: generic}
	r.Register(IsEmailField, &EmailExactScorer{Normalizer: n})
	r.Register(IsPhoneField, &PhoneScorer{Normalizer: n})
	r.Register(IsNameField, &NameScorer{Normalizer: n})
	r.Register(IsAddressField, &AddressScorer{Normalizer: n})
	return r
}

// IsEmailField reports whether the field name looks like an email field
func IsEmailField(fieldName string) bool {
	return strings.Contains(strings.ToLower(fieldName), "email")
}

// IsPhoneField reports whether the field name looks like a phone field
func IsPhoneField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	return strings.Contains(lower, "phone") || strings.Contains(lower, "fax") || strings.Contains(lower, "mobile")
}

// IsNameField reports whether the field name looks like a name field
func IsNameField(fieldName string) bool {
	return strings.Contains(strings.ToLower(fieldName), "name")
}

var addressParts = []string{"address", "street", "city", "state", "country", "postal", "zip"}

// IsAddressField reports whether the field name looks like part of an address
func IsAddressField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, part := range addressParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// GenericScorer handles any text field: exact match after normalization
// scores 100, short strings require an exact match, otherwise the
// edit-distance ratio applies.
type GenericScorer struct {
	Normalizer *normalize.Normalizer
}

func (s *GenericScorer) Score(a, b models.Value) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}

	v1 := s.Normalizer.Normalize(a.String())
	v2 := s.Normalizer.Normalize(b.String())
	if v1 == v2 {
		return 100
	}
	if len(v1) < 3 || len(v2) < 3 {
		return 0
	}

	return similarity.Ratio(v1, v2)
}

// EmailScorer compares email addresses. Domains must match exactly; when
// they do, the local parts score by edit-distance ratio. Values that do not
// parse as a single-@ address fall back to generic scoring.
type EmailScorer struct {
	Normalizer *normalize.Normalizer
	Fallback   Scorer
}

func (s *EmailScorer) Score(a, b models.Value) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}

	v1 := s.Normalizer.NormalizeEmail(a.String())
	v2 := s.Normalizer.NormalizeEmail(b.String())
	if v1 == v2 {
		return 100
	}

	parts1 := strings.Split(v1, "@")
	parts2 := strings.Split(v2, "@")
	if len(parts1) != 2 || len(parts2) != 2 {
		return s.Fallback.Score(a, b)
	}

	if parts1[1] != parts2[1] {
		return 0
	}

	return similarity.Ratio(parts1[0], parts2[0])
}

// EmailExactScorer scores 100 only when the normalized addresses are equal
type EmailExactScorer struct {
	Normalizer *normalize.Normalizer
}

func (s *EmailExactScorer) Score(a, b models.Value) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}
	if s.Normalizer.NormalizeEmail(a.String()) == s.Normalizer.NormalizeEmail(b.String()) {
		return 100
	}
	return 0
}

// PhoneScorer scores 100 when the digit sequences match, otherwise 0
type PhoneScorer struct {
	Normalizer *normalize.Normalizer
}

func (s *PhoneScorer) Score(a, b models.Value) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}

	d1 := s.Normalizer.NormalizePhone(a.String())
	d2 := s.Normalizer.NormalizePhone(b.String())
	if d1 == "" || d2 == "" {
		return 0
	}
	if d1 == d2 {
		return 100
	}
	return 0
}

// NameScorer blends whole-string similarity with token overlap so that
// reordered names ("Smith, John" vs "John Smith") still score highly.
type NameScorer struct {
	Normalizer *normalize.Normalizer
}

func (s *NameScorer) Score(a, b models.Value) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}

	v1 := s.Normalizer.Normalize(a.String())
	v2 := s.Normalizer.Normalize(b.String())
	if v1 == v2 {
		return 100
	}
	if len(v1) < 3 || len(v2) < 3 {
		return 0
	}

	wholeScore := similarity.Ratio(v1, v2)

	tokens1 := strings.Fields(v1)
	tokens2 := strings.Fields(v2)
	tokenScore := 100 * float64(commonTokens(tokens1, tokens2)) / float64(max(len(tokens1), len(tokens2)))

	return 0.4*wholeScore + 0.6*tokenScore
}

// AddressScorer scores by token overlap across the two normalized values
type AddressScorer struct {
	Normalizer *normalize.Normalizer
}

func (s *AddressScorer) Score(a, b models.Value) float64 {
	if a.IsNull() || b.IsNull() {
		return 0
	}

	v1 := s.Normalizer.Normalize(a.String())
	v2 := s.Normalizer.Normalize(b.String())
	if v1 == v2 {
		return 100
	}

	tokens1 := strings.Fields(v1)
	tokens2 := strings.Fields(v2)
	if len(tokens1) == 0 && len(tokens2) == 0 {
		return 100
	}
	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0
	}

	common := commonTokens(tokens1, tokens2)
	return 100 * float64(common) / float64(len(tokens1)+len(tokens2)-common)
}

// commonTokens counts tokens shared between the two lists; each token on the
// first side can be matched at most once.
func commonTokens(tokens1, tokens2 []string) int {
	remaining := make(map[string]int, len(tokens1))
	for _, tok := range tokens1 {
		remaining[tok]++
	}

	common := 0
	for _, tok := range tokens2 {
		if remaining[tok] > 0 {
			remaining[tok]--
			common++
		}
	}
	return common
}
