// Package extraction turns retrieved evidence into structured candidate
// answers via the completion service.
//
// Each call produces a fresh Candidate; candidates are never mutated, the
// correction loop decides which one to keep. Malformed model output is data,
// not an error: it yields a zero-confidence candidate carrying the raw text
// so the loop can decide to retry.
package extraction

import (
	"github.com/lexaudit/lexaudit/internal/index"
)

// Category names for the six legal extraction targets.
const (
	CategoryDefinitions   = "definitions"
	CategoryEligibility   = "eligibility"
	CategoryPayments      = "payments"
	CategoryPenalties     = "penalties"
	CategoryObligations   = "obligations"
	CategoryRecordKeeping = "record_keeping"
)

// Categories lists all extraction categories in report order.
func Categories() []string {
	return []string{
		CategoryDefinitions,
		CategoryEligibility,
		CategoryPayments,
		CategoryPenalties,
		CategoryObligations,
		CategoryRecordKeeping,
	}
}

// Schema is the static, read-only configuration for one category.
type Schema struct {
	// Category is the category name.
	Category string

	// RequiredFields are the top-level JSON fields a complete extraction
	// must populate.
	RequiredFields []string

	// Queries are the retrieval sub-queries for the first attempt.
	Queries []string

	// WidenQueries are broader sub-queries used when the loop retries.
	WidenQueries []string

	// Instruction is the JSON extraction task handed to the model.
	Instruction string
}

// ParseResult is the outcome of parsing model output: either a well-formed
// field mapping or the raw malformed text. Exactly one branch is populated.
type ParseResult struct {
	// Fields holds the parsed mapping when parsing succeeded.
	Fields map[string]any

	// Malformed is true when the output was not valid JSON.
	Malformed bool

	// Raw is the original model output, kept for diagnostics.
	Raw string
}

// Candidate is one extraction attempt's result.
type Candidate struct {
	// Category is the extraction category.
	Category string `json:"category"`

	// Fields is the parsed field mapping; empty when parsing failed.
	Fields map[string]any `json:"fields"`

	// SelfConfidence is the model's self-reported confidence in [0,100].
	// Zero when parsing failed or the model omitted it.
	SelfConfidence float64 `json:"self_confidence"`

	// Evidence is the evidence set the candidate was extracted from,
	// in descending score order.
	Evidence []index.EvidenceHit `json:"evidence"`

	// RawOutput is the unparsed model output.
	RawOutput string `json:"raw_output"`

	// ParseFailed marks candidates built from malformed output.
	ParseFailed bool `json:"parse_failed"`
}
