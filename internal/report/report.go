// Package report assembles the final analysis document from summary,
// per-category results, and rule verdicts.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexaudit/lexaudit/internal/correction"
	"github.com/lexaudit/lexaudit/internal/extraction"
	"github.com/lexaudit/lexaudit/internal/rules"
)

// ErrIncompleteReport indicates a required category never produced a result.
// Assembly fails rather than emitting a partially-populated report.
var ErrIncompleteReport = errors.New("incomplete report")

// reportVersion is bumped when the report layout changes.
const reportVersion = "1.0"

// complianceThreshold is the minimum passed rules for "compliant".
const complianceThreshold = 4

// RuleSummary aggregates rule verdicts. All counts are recomputed at
// assembly; nothing is cached from earlier stages.
type RuleSummary struct {
	TotalRules       int     `json:"total_rules"`
	Passed           int     `json:"passed"`
	Failed           int     `json:"failed"`
	Partial          int     `json:"partial"`
	PassRate         float64 `json:"pass_rate"`
	ComplianceStatus string  `json:"compliance_status"`
}

// RuleChecks carries the individual verdicts and their summary.
type RuleChecks struct {
	Results []rules.Verdict `json:"results"`
	Summary RuleSummary     `json:"summary"`
}

// AnalysisMetadata describes the analysis that produced the report.
type AnalysisMetadata struct {
	CategoriesAnalyzed []string `json:"categories_analyzed"`
	TotalCategories    int      `json:"total_categories"`
	ReportVersion      string   `json:"report_version"`
}

// Report is the single externally persisted artifact of a run. It is
// assembled once and never mutated; a rerun replaces the previous report for
// the same document.
type Report struct {
	RunID        string                       `json:"run_id"`
	DocumentName string                       `json:"document_name"`
	GeneratedAt  time.Time                    `json:"generated_at"`
	Summary      map[string]any               `json:"summary"`
	Sections     map[string]correction.Result `json:"sections"`
	RuleChecks   RuleChecks                   `json:"rule_checks"`
	Analysis     AnalysisMetadata             `json:"analysis_metadata"`
}

// Assemble merges the run outputs into a Report.
//
// Every extraction category must be present in sections; a missing category
// means some loop never reached a terminal state, which is a structural
// failure surfaced as ErrIncompleteReport. The pass rate is recomputed from
// the verdicts, never trusted from a prior count.
func Assemble(documentName string, summary map[string]any, sections map[string]correction.Result, verdicts []rules.Verdict) (*Report, error) {
	if documentName == "" {
		return nil, errors.New("document name is required")
	}

	categories := extraction.Categories()
	for _, category := range categories {
		if _, ok := sections[category]; !ok {
			return nil, fmt.Errorf("%w: no result for category %q", ErrIncompleteReport, category)
		}
	}

	if summary == nil {
		summary = map[string]any{}
	}

	return &Report{
		RunID:        uuid.NewString(),
		DocumentName: documentName,
		GeneratedAt:  time.Now().UTC(),
		Summary:      summary,
		Sections:     sections,
		RuleChecks: RuleChecks{
			Results: verdicts,
			Summary: summarizeVerdicts(verdicts),
		},
		Analysis: AnalysisMetadata{
			CategoriesAnalyzed: categories,
			TotalCategories:    len(categories),
			ReportVersion:      reportVersion,
		},
	}, nil
}

func summarizeVerdicts(verdicts []rules.Verdict) RuleSummary {
	s := RuleSummary{TotalRules: len(verdicts)}
	for _, v := range verdicts {
		switch v.Status {
		case rules.StatusPass:
			s.Passed++
		case rules.StatusPartial:
			s.Partial++
		default:
			s.Failed++
		}
	}
	if s.TotalRules > 0 {
		s.PassRate = float64(s.Passed) / float64(s.TotalRules) * 100
	}
	s.ComplianceStatus = "non-compliant"
	if s.Passed >= complianceThreshold {
		s.ComplianceStatus = "compliant"
	}
	return s
}
