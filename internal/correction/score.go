package correction

import (
	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/extraction"
)

// Scoring weights. The combined confidence blends the model's self-reported
// confidence with two signals the model cannot fake: structural completeness
// of the required fields and sufficiency of the retrieved evidence.
const (
	weightSelf         = 0.4
	weightCompleteness = 0.4
	weightEvidence     = 0.2

	// Within completeness, field presence dominates over richness.
	weightPresence = 0.6
	weightRichness = 0.4

	// Each item in a required field contributes this much richness, and each
	// evidence hit this much quality, both capped at 100.
	richnessPerItem = 25.0
	qualityPerHit   = 20.0
)

// evaluation is the deterministic score of one candidate.
type evaluation struct {
	// Completeness in [0,100]: fraction of required fields present and
	// non-empty, blended with how rich the populated fields are.
	Completeness float64

	// EvidenceQuality in [0,100]: 0 when no evidence hit clears the minimum
	// relevance threshold, otherwise scaled by evidence count.
	EvidenceQuality float64

	// Combined in [0,100]: the confidence carried into the final result.
	Combined float64
}

// evaluate scores a candidate. The function is pure: identical inputs always
// produce identical scores.
func evaluate(cfg config.CorrectionConfig, schema extraction.Schema, c extraction.Candidate) evaluation {
	ev := evaluation{
		Completeness:    completeness(schema.RequiredFields, c.Fields),
		EvidenceQuality: evidenceQuality(cfg.MinEvidenceScore, c),
	}
	ev.Combined = clamp100(weightSelf*c.SelfConfidence +
		weightCompleteness*ev.Completeness +
		weightEvidence*ev.EvidenceQuality)
	return ev
}

// completeness blends required-field presence with per-field richness.
func completeness(required []string, fields map[string]any) float64 {
	if len(required) == 0 {
		return 0
	}
	present := 0
	richness := 0.0
	for _, name := range required {
		n := countItems(fields[name])
		if n == 0 {
			continue
		}
		present++
		r := float64(n) * richnessPerItem
		if r > 100 {
			r = 100
		}
		richness += r
	}
	presence := float64(present) / float64(len(required)) * 100
	avgRichness := richness / float64(len(required))
	return weightPresence*presence + weightRichness*avgRichness
}

// countItems counts the extracted values behind one field: list length for
// arrays, key count for objects, 1 for any other non-empty value.
func countItems(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	case string:
		if t == "" {
			return 0
		}
		return 1
	default:
		return 1
	}
}

// evidenceQuality is 0 unless at least one hit clears the minimum relevance
// threshold; sufficient evidence scores by hit count.
func evidenceQuality(minScore float64, c extraction.Candidate) float64 {
	sufficient := false
	for _, hit := range c.Evidence {
		if float64(hit.Score) >= minScore {
			sufficient = true
			break
		}
	}
	if !sufficient {
		return 0
	}
	q := float64(len(c.Evidence)) * qualityPerHit
	if q > 100 {
		return 100
	}
	return q
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
