package models

// MatchType defines how a field participates in key building and scoring
type MatchType string

const (
	MatchTypeExact    MatchType = "exact"    // Trimmed lowercase comparison
	MatchTypeFuzzy    MatchType = "fuzzy"    // Alphanumeric-only lowercase comparison
	MatchTypePhonetic MatchType = "phonetic" // Consonant-skeleton comparison
)

// FieldSpec describes how one field participates in duplicate detection
type FieldSpec struct {
	Name      string    `json:"name" validate:"required"`
	Required  bool      `json:"required"`
	MatchType MatchType `json:"match_type"`
	Weight    float64   `json:"weight" validate:"gte=0"` // 0 means use the built-in weight table
}
