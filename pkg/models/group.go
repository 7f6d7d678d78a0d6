package models

// MasterStrategy selects which record in a duplicate group survives the merge
type MasterStrategy string

const (
	// MasterStrategyOldestCreated keeps the record with the earliest creation time
	MasterStrategyOldestCreated MasterStrategy = "oldest_created"
	// MasterStrategyNewestCreated keeps the record with the latest creation time
	MasterStrategyNewestCreated MasterStrategy = "newest_created"
	// MasterStrategyMostComplete keeps the record with the most populated fields
	MasterStrategyMostComplete MasterStrategy = "most_complete"
)

// DuplicateGroup is a cluster of records believed to represent the same
// real-world entity. It is created by the grouping engine and consumed once
// by the merge executor (or surfaced read-only for dry runs).
type DuplicateGroup struct {
	Records      []Record `json:"records"`
	MatchScore   float64  `json:"match_score"` // 0-100
	GroupKey     string   `json:"group_key"`
	IsExactMatch bool     `json:"is_exact_match"`
}

// HasDuplicates reports whether the group holds more than one record
func (g *DuplicateGroup) HasDuplicates() bool {
	return len(g.Records) > 1
}

// Size returns the number of records in the group
func (g *DuplicateGroup) Size() int {
	return len(g.Records)
}

// Master selects the surviving record for the given strategy. Ties in
// creation time or completeness resolve to the first-seen record, so repeated
// calls with the same strategy always return the same record. Unknown
// strategies fall back to oldest_created.
func (g *DuplicateGroup) Master(strategy MasterStrategy) *Record {
	if len(g.Records) == 0 {
		return nil
	}
	if len(g.Records) == 1 {
		return &g.Records[0]
	}

	switch strategy {
	case MasterStrategyNewestCreated:
		best := 0
		for i := 1; i < len(g.Records); i++ {
			if g.Records[i].CreatedAt.After(g.Records[best].CreatedAt) {
				best = i
			}
		}
		return &g.Records[best]
	case MasterStrategyMostComplete:
		best := 0
		bestCount := g.Records[0].PopulatedFieldCount()
		for i := 1; i < len(g.Records); i++ {
			if count := g.Records[i].PopulatedFieldCount(); count > bestCount {
				best = i
				bestCount = count
			}
		}
		return &g.Records[best]
	default: // oldest_created
		best := 0
		for i := 1; i < len(g.Records); i++ {
			if g.Records[i].CreatedAt.Before(g.Records[best].CreatedAt) {
				best = i
			}
		}
		return &g.Records[best]
	}
}

// DuplicateIDs returns the identities of every record other than the master.
// A nil master or empty group yields an empty list.
func (g *DuplicateGroup) DuplicateIDs(master *Record) []string {
	ids := make([]string, 0)
	if master == nil || len(g.Records) == 0 {
		return ids
	}
	for i := range g.Records {
		if g.Records[i].ID != master.ID {
			ids = append(ids, g.Records[i].ID)
		}
	}
	return ids
}
