package processor

import "time"

// YieldFraction is the consumed fraction at which a cycle stops scheduling
// further chunks. Yielding early keeps the cycle from ever exhausting its
// quota mid-chunk, which cannot be recovered.
const YieldFraction = 0.75

// CycleBudget is a ResourceBudget backed by a wall-clock limit and a record
// limit. A zero limit disables that counter.
type CycleBudget struct {
	start      time.Time
	maxElapsed time.Duration
	maxRecords int64
	records    int64
}

// NewCycleBudget starts a budget for one execution cycle
func NewCycleBudget(maxElapsed time.Duration, maxRecords int64) *CycleBudget {
	return &CycleBudget{
		start:      time.Now(),
		maxElapsed: maxElapsed,
		maxRecords: maxRecords,
	}
}

func (b *CycleBudget) Spend(records int) {
	b.records += int64(records)
}

func (b *CycleBudget) FractionConsumed() float64 {
	var worst float64
	if b.maxElapsed > 0 {
		worst = float64(time.Since(b.start)) / float64(b.maxElapsed)
	}
	if b.maxRecords > 0 {
		if f := float64(b.records) / float64(b.maxRecords); f > worst {
			worst = f
		}
	}
	return worst
}

// UnlimitedBudget never yields; used by dry-run previews and tests
type UnlimitedBudget struct{}

func (UnlimitedBudget) Spend(int) {}

func (UnlimitedBudget) FractionConsumed() float64 { return 0 }
