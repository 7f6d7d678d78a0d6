package keybuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalize"
)

func testRecord(fields map[string]models.Value) *models.Record {
	return &models.Record{
		ID:         "rec-1",
		TenantID:   "tenant-1",
		ObjectType: "account",
		Fields:     fields,
		CreatedAt:  time.Now(),
	}
}

func TestBuildCompositeKey(t *testing.T) {
	b := New(normalize.New())

	specs := []models.FieldSpec{
		{Name: "Name", Required: true, MatchType: models.MatchTypeFuzzy},
		{Name: "Phone", Required: false, MatchType: models.MatchTypeExact},
		{Name: "BillingCity", Required: false, MatchType: models.MatchTypePhonetic},
	}

	t.Run("builds ordered normalized parts", func(t *testing.T) {
		rec := testRecord(map[string]models.Value{
			"Name":        models.StringValue("Acme, Inc."),
			"Phone":       models.StringValue(" 415-555-1234 "),
			"BillingCity": models.StringValue("Portland"),
		})

		key := b.BuildCompositeKey(rec, specs)

		assert.Equal(t, "acmeinc|#|415-555-1234|#|prtlnd", key)
	})

	t.Run("missing required field yields empty key", func(t *testing.T) {
		rec := testRecord(map[string]models.Value{
			"Phone": models.StringValue("415-555-1234"),
		})

		assert.Equal(t, "", b.BuildCompositeKey(rec, specs))
	})

	t.Run("optional null matches blank value", func(t *testing.T) {
		withNull := testRecord(map[string]models.Value{
			"Name":        models.StringValue("Acme"),
			"BillingCity": models.StringValue("Portland"),
		})
		withBlank := testRecord(map[string]models.Value{
			"Name":        models.StringValue("Acme"),
			"Phone":       models.StringValue("  "),
			"BillingCity": models.StringValue("Portland"),
		})

		assert.Equal(t, b.BuildCompositeKey(withNull, specs), b.BuildCompositeKey(withBlank, specs))
	})

	t.Run("same specs same record is deterministic", func(t *testing.T) {
		rec := testRecord(map[string]models.Value{
			"Name":        models.StringValue("Acme"),
			"Phone":       models.StringValue("415"),
			"BillingCity": models.StringValue("Portland"),
		})

		assert.Equal(t, b.BuildCompositeKey(rec, specs), b.BuildCompositeKey(rec, specs))
	})

	t.Run("spec order changes the key", func(t *testing.T) {
		rec := testRecord(map[string]models.Value{
			"Name":        models.StringValue("Acme"),
			"Phone":       models.StringValue("415"),
			"BillingCity": models.StringValue("Portland"),
		})
		reversed := []models.FieldSpec{specs[2], specs[1], specs[0]}

		assert.NotEqual(t, b.BuildCompositeKey(rec, specs), b.BuildCompositeKey(rec, reversed))
	})
}
