package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/correction"
	"github.com/lexaudit/lexaudit/internal/extraction"
)

func newChecker() *Checker {
	return NewChecker(config.CorrectionConfig{AcceptThreshold: 70, FloorThreshold: 40})
}

func fullSections(confidence float64) map[string]correction.Result {
	fields := map[string]map[string]any{
		extraction.CategoryDefinitions:   {"terms": []any{"claimant", "benefit"}},
		extraction.CategoryEligibility:   {"criteria": []any{"resident", "registered"}},
		extraction.CategoryObligations:   {"obligations": []any{"report changes"}},
		extraction.CategoryPenalties:     {"penalties": []any{"fine"}, "enforcement_mechanisms": []any{"prosecution"}},
		extraction.CategoryPayments:      {"payment_types": []any{"weekly benefit"}},
		extraction.CategoryRecordKeeping: {"requirements": []any{"keep records 7 years"}},
	}
	sections := make(map[string]correction.Result, len(fields))
	for category, f := range fields {
		sections[category] = correction.Result{
			Category:    category,
			FinalFields: f,
			Confidence:  confidence,
			Accepted:    confidence >= 70,
		}
	}
	return sections
}

func TestRulesDefinitions(t *testing.T) {
	defs := Rules()
	require.Len(t, defs, 6)

	categories := make(map[string]bool)
	for i, def := range defs {
		assert.Equal(t, i+1, def.ID)
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Fields)
		categories[def.Category] = true
	}
	// Every category backs exactly one rule.
	assert.Len(t, categories, 6)
}

func TestCheckAllPass(t *testing.T) {
	verdicts := newChecker().Check(Rules(), fullSections(85))
	require.Len(t, verdicts, 6)
	for _, v := range verdicts {
		assert.Equal(t, StatusPass, v.Status, v.Name)
		assert.NotEmpty(t, v.Justification)
		assert.InDelta(t, 85, v.Confidence, 1e-9)
	}
}

func TestCheckPartialBelowAcceptThreshold(t *testing.T) {
	verdicts := newChecker().Check(Rules(), fullSections(55))
	require.Len(t, verdicts, 6)
	for _, v := range verdicts {
		assert.Equal(t, StatusPartial, v.Status, v.Name)
		assert.Contains(t, v.Justification, "below the accept threshold")
	}
}

func TestCheckFailBelowFloor(t *testing.T) {
	verdicts := newChecker().Check(Rules(), fullSections(20))
	for _, v := range verdicts {
		assert.Equal(t, StatusFail, v.Status, v.Name)
	}
}

func TestCheckEmptyEnforcementFails(t *testing.T) {
	sections := fullSections(85)
	penalties := sections[extraction.CategoryPenalties]
	penalties.FinalFields = map[string]any{
		"penalties":              []any{"fine up to $5000"},
		"enforcement_mechanisms": []any{},
	}
	sections[extraction.CategoryPenalties] = penalties

	verdicts := newChecker().Check(Rules(), sections)

	var penaltyVerdict *Verdict
	for i := range verdicts {
		if verdicts[i].SupportingCategory == extraction.CategoryPenalties {
			penaltyVerdict = &verdicts[i]
		}
	}
	require.NotNil(t, penaltyVerdict)
	assert.Equal(t, StatusFail, penaltyVerdict.Status)
	assert.Contains(t, penaltyVerdict.Justification, "enforcement_mechanisms")

	// Other rules are unaffected.
	for _, v := range verdicts {
		if v.SupportingCategory != extraction.CategoryPenalties {
			assert.Equal(t, StatusPass, v.Status, v.Name)
		}
	}
}

func TestCheckMissingCategoryFails(t *testing.T) {
	sections := fullSections(85)
	delete(sections, extraction.CategoryRecordKeeping)

	verdicts := newChecker().Check(Rules(), sections)
	last := verdicts[len(verdicts)-1]
	assert.Equal(t, StatusFail, last.Status)
	assert.Contains(t, last.Justification, "no extraction result")
}

func TestCheckIsDeterministic(t *testing.T) {
	sections := fullSections(55)
	first := newChecker().Check(Rules(), sections)
	second := newChecker().Check(Rules(), sections)
	assert.Equal(t, first, second)
}

func TestFieldEmpty(t *testing.T) {
	assert.True(t, fieldEmpty(nil))
	assert.True(t, fieldEmpty([]any{}))
	assert.True(t, fieldEmpty(map[string]any{}))
	assert.True(t, fieldEmpty(""))
	assert.True(t, fieldEmpty("   "))
	assert.False(t, fieldEmpty([]any{"x"}))
	assert.False(t, fieldEmpty("fine"))
	assert.False(t, fieldEmpty(42.0))
}
