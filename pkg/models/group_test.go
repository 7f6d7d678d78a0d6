package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupOf(records ...Record) *DuplicateGroup {
	return &DuplicateGroup{Records: records}
}

func TestDuplicateGroup_Master(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	oldest := Record{ID: "rec-old", CreatedAt: base}
	middle := Record{ID: "rec-mid", CreatedAt: base.Add(24 * time.Hour)}
	newest := Record{ID: "rec-new", CreatedAt: base.Add(48 * time.Hour)}

	t.Run("OldestCreated", func(t *testing.T) {
		g := groupOf(middle, newest, oldest)
		master := g.Master(MasterStrategyOldestCreated)
		require.NotNil(t, master)
		assert.Equal(t, "rec-old", master.ID)
	})

	t.Run("NewestCreated", func(t *testing.T) {
		g := groupOf(middle, newest, oldest)
		master := g.Master(MasterStrategyNewestCreated)
		require.NotNil(t, master)
		assert.Equal(t, "rec-new", master.ID)
	})

	t.Run("MostComplete", func(t *testing.T) {
		sparse := Record{ID: "rec-sparse", Fields: map[string]Value{
			"name":  StringValue("Acme"),
			"phone": NullValue(),
		}}
		full := Record{ID: "rec-full", Fields: map[string]Value{
			"name":  StringValue("Acme Inc"),
			"phone": StringValue("415-555-1234"),
			"city":  StringValue("Portland"),
		}}

		g := groupOf(sparse, full)
		master := g.Master(MasterStrategyMostComplete)
		require.NotNil(t, master)
		assert.Equal(t, "rec-full", master.ID)
	})

	t.Run("TieBreaksToFirstSeen", func(t *testing.T) {
		a := Record{ID: "rec-a", CreatedAt: base}
		b := Record{ID: "rec-b", CreatedAt: base}

		g := groupOf(a, b)
		assert.Equal(t, "rec-a", g.Master(MasterStrategyOldestCreated).ID)
		assert.Equal(t, "rec-a", g.Master(MasterStrategyNewestCreated).ID)

		// repeated calls are deterministic
		for i := 0; i < 5; i++ {
			assert.Equal(t, "rec-a", g.Master(MasterStrategyOldestCreated).ID)
		}
	})

	t.Run("UnknownStrategyFallsBackToOldest", func(t *testing.T) {
		g := groupOf(newest, oldest)
		master := g.Master(MasterStrategy("bogus"))
		require.NotNil(t, master)
		assert.Equal(t, "rec-old", master.ID)
	})

	t.Run("SingleRecord", func(t *testing.T) {
		g := groupOf(oldest)
		master := g.Master(MasterStrategyMostComplete)
		require.NotNil(t, master)
		assert.Equal(t, "rec-old", master.ID)
	})

	t.Run("EmptyGroup", func(t *testing.T) {
		g := groupOf()
		assert.Nil(t, g.Master(MasterStrategyOldestCreated))
	})
}

func TestDuplicateGroup_DuplicateIDs(t *testing.T) {
	a := Record{ID: "rec-a"}
	b := Record{ID: "rec-b"}
	c := Record{ID: "rec-c"}

	g := groupOf(a, b, c)
	master := g.Master(MasterStrategyOldestCreated)
	require.NotNil(t, master)

	ids := g.DuplicateIDs(master)
	assert.ElementsMatch(t, []string{"rec-b", "rec-c"}, ids)

	t.Run("NilMaster", func(t *testing.T) {
		assert.Empty(t, g.DuplicateIDs(nil))
	})
}

func TestRecord_PopulatedFieldCount(t *testing.T) {
	record := Record{Fields: map[string]Value{
		"name":  StringValue("Acme"),
		"phone": NullValue(),
		"size":  NumberValue(250),
	}}
	assert.Equal(t, 2, record.PopulatedFieldCount())

	empty := Record{}
	assert.Equal(t, 0, empty.PopulatedFieldCount())
}
