// Package rules evaluates the six legal compliance rules against extracted
// category results.
//
// Rule evaluation is pure and total: it inspects already-produced correction
// results only, never the model or the index, so the same sections always
// yield the same verdicts.
package rules

import (
	"fmt"
	"strings"

	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/correction"
	"github.com/lexaudit/lexaudit/internal/extraction"
)

// Status is a rule verdict status.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusPartial Status = "partial"
)

// Definition declares one compliance rule: the category it inspects and the
// extracted fields that must be populated for the rule's evidence to exist.
type Definition struct {
	ID          int
	Name        string
	Description string
	Category    string
	Fields      []string
}

// Verdict is the outcome of one rule check.
type Verdict struct {
	RuleID             int     `json:"rule_id"`
	Name               string  `json:"name"`
	Status             Status  `json:"status"`
	Justification      string  `json:"justification"`
	SupportingCategory string  `json:"supporting_category"`
	Confidence         float64 `json:"confidence"`
}

// Rules returns the six legal document rules in check order.
func Rules() []Definition {
	return []Definition{
		{
			ID:          1,
			Name:        "Key Terms Defined",
			Description: "Document contains clear definitions of key terms",
			Category:    extraction.CategoryDefinitions,
			Fields:      []string{"terms"},
		},
		{
			ID:          2,
			Name:        "Eligibility Criteria Present",
			Description: "Document specifies eligibility criteria or requirements",
			Category:    extraction.CategoryEligibility,
			Fields:      []string{"criteria"},
		},
		{
			ID:          3,
			Name:        "Authority Responsibilities Specified",
			Description: "Document defines authority or agency responsibilities",
			Category:    extraction.CategoryObligations,
			Fields:      []string{"obligations"},
		},
		{
			ID:          4,
			Name:        "Penalties/Enforcement Exist",
			Description: "Document includes penalties or enforcement mechanisms",
			Category:    extraction.CategoryPenalties,
			Fields:      []string{"penalties", "enforcement_mechanisms"},
		},
		{
			ID:          5,
			Name:        "Payment/Entitlement Structure",
			Description: "Document describes payment or entitlement structure",
			Category:    extraction.CategoryPayments,
			Fields:      []string{"payment_types"},
		},
		{
			ID:          6,
			Name:        "Reporting/Record-keeping",
			Description: "Document includes reporting or record-keeping requirements",
			Category:    extraction.CategoryRecordKeeping,
			Fields:      []string{"requirements"},
		},
	}
}

// Checker grades rules against correction results using the configured
// confidence thresholds.
type Checker struct {
	accept float64
	floor  float64
}

// NewChecker creates a rule checker.
func NewChecker(cfg config.CorrectionConfig) *Checker {
	return &Checker{accept: cfg.AcceptThreshold, floor: cfg.FloorThreshold}
}

// Check evaluates every rule against the category sections and returns the
// verdicts in rule order.
//
// A rule passes when all of its fields are populated and the supporting
// category's confidence reaches the accept threshold. With the fields
// populated but confidence between floor and accept the verdict is partial.
// Everything else, including a missing category, fails.
func (c *Checker) Check(defs []Definition, sections map[string]correction.Result) []Verdict {
	verdicts := make([]Verdict, 0, len(defs))
	for _, def := range defs {
		verdicts = append(verdicts, c.check(def, sections))
	}
	return verdicts
}

func (c *Checker) check(def Definition, sections map[string]correction.Result) Verdict {
	v := Verdict{
		RuleID:             def.ID,
		Name:               def.Name,
		SupportingCategory: def.Category,
	}

	section, ok := sections[def.Category]
	if !ok {
		v.Status = StatusFail
		v.Justification = fmt.Sprintf("no extraction result for category %q", def.Category)
		return v
	}
	v.Confidence = section.Confidence

	var empty []string
	for _, field := range def.Fields {
		if fieldEmpty(section.FinalFields[field]) {
			empty = append(empty, field)
		}
	}
	if len(empty) > 0 {
		v.Status = StatusFail
		v.Justification = fmt.Sprintf("required field(s) %s empty in category %q",
			strings.Join(empty, ", "), def.Category)
		return v
	}

	switch {
	case section.Confidence >= c.accept:
		v.Status = StatusPass
		v.Justification = fmt.Sprintf("%s populated in category %q with confidence %.0f",
			strings.Join(def.Fields, ", "), def.Category, section.Confidence)
	case section.Confidence >= c.floor:
		v.Status = StatusPartial
		v.Justification = fmt.Sprintf("evidence present in category %q but confidence %.0f is below the accept threshold",
			def.Category, section.Confidence)
	default:
		v.Status = StatusFail
		v.Justification = fmt.Sprintf("confidence %.0f in category %q is below the floor",
			section.Confidence, def.Category)
	}
	return v
}

// fieldEmpty reports whether an extracted field carries no usable value.
func fieldEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
