package models

// Dedupe processing defaults
const (
	DefaultFuzzyThreshold = 75.0
	DefaultChunkSize      = 200
)

// DedupeConfig configures one deduplication job
type DedupeConfig struct {
	ObjectType     string         `json:"object_type" validate:"required"`
	FieldSpecs     []FieldSpec    `json:"field_specs" validate:"required,min=1,dive"`
	MasterStrategy MasterStrategy `json:"master_strategy"`
	FuzzyThreshold float64        `json:"fuzzy_threshold" validate:"gte=0,lte=100"`
	ChunkSize      int            `json:"chunk_size" validate:"gte=0"`
	DryRun         bool           `json:"dry_run"`
}

// ApplyDefaults fills zero-valued settings with processing defaults
func (c *DedupeConfig) ApplyDefaults() {
	if c.MasterStrategy == "" {
		c.MasterStrategy = MasterStrategyOldestCreated
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
}
