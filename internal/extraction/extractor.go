package extraction

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/index"
	"github.com/lexaudit/lexaudit/internal/llm"
)

// Extractor performs single extraction attempts against the completion
// service.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(client llm.Client, logger *zap.Logger) (*Extractor, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, logger: logger}, nil
}

// Extract builds a deterministic prompt from the schema and evidence,
// invokes the completion service once, and parses the response.
//
// Malformed output produces a candidate with zero confidence and ParseFailed
// set; only transport-level failures return an error, wrapping
// llm.ErrGeneration.
func (e *Extractor) Extract(ctx context.Context, schema Schema, evidence []index.EvidenceHit) (Candidate, error) {
	prompt := buildExtractionPrompt(schema, evidence)

	raw, err := e.client.Complete(ctx, prompt)
	if err != nil {
		return Candidate{}, fmt.Errorf("extracting %s: %w", schema.Category, err)
	}

	result := Parse(raw)
	if result.Malformed {
		e.logger.Warn("model output failed to parse",
			zap.String("category", schema.Category),
			zap.Int("output_len", len(raw)),
		)
		return Candidate{
			Category:    schema.Category,
			Fields:      map[string]any{},
			Evidence:    evidence,
			RawOutput:   raw,
			ParseFailed: true,
		}, nil
	}

	confidence := popConfidence(result.Fields)
	return Candidate{
		Category:       schema.Category,
		Fields:         result.Fields,
		SelfConfidence: confidence,
		Evidence:       evidence,
		RawOutput:      raw,
	}, nil
}

// Summarize generates a high-level document summary from sampled excerpts.
func (e *Extractor) Summarize(ctx context.Context, excerpts []index.EvidenceHit) (map[string]any, error) {
	raw, err := e.client.Complete(ctx, buildSummaryPrompt(excerpts))
	if err != nil {
		return nil, fmt.Errorf("generating summary: %w", err)
	}

	result := Parse(raw)
	if result.Malformed {
		e.logger.Warn("summary output failed to parse", zap.Int("output_len", len(raw)))
		return map[string]any{}, nil
	}
	return result.Fields, nil
}

// buildExtractionPrompt assembles the category prompt. Evidence appears in
// descending score order so identical inputs always yield an identical
// prompt.
func buildExtractionPrompt(schema Schema, evidence []index.EvidenceHit) string {
	var b strings.Builder
	b.WriteString("You are a legal document analyst specializing in extracting structured information from legal texts.\n\n")
	fmt.Fprintf(&b, "Category: %s\n\n", strings.ToUpper(schema.Category))
	b.WriteString("Context from Document:\n")
	b.WriteString(formatEvidence(evidence))
	b.WriteString("\n\nTask: ")
	b.WriteString(schema.Instruction)
	b.WriteString("\n\nIMPORTANT: Respond ONLY with valid JSON. Do not include any explanatory text, markdown formatting, or code blocks. Just the raw JSON object.")
	return b.String()
}

// buildSummaryPrompt assembles the document summary prompt.
func buildSummaryPrompt(excerpts []index.EvidenceHit) string {
	var b strings.Builder
	b.WriteString("You are a legal document analyst. Based on the following excerpts from a legal document, provide a comprehensive summary.\n\n")
	b.WriteString("Document Excerpts:\n")
	b.WriteString(formatEvidence(excerpts))
	b.WriteString(`

Provide a JSON response with the following structure:
{
    "title": "Document title or main subject",
    "purpose": "Main purpose of the document",
    "scope": "Scope and applicability",
    "key_topics": ["topic1", "topic2", ...],
    "document_type": "Type of legal document (e.g., Act, Regulation, Policy)"
}

Respond ONLY with valid JSON, no additional text.`)
	return b.String()
}

// formatEvidence renders hits as numbered excerpts with provenance headers,
// sorted by descending score with ties in document order.
func formatEvidence(evidence []index.EvidenceHit) string {
	sorted := make([]index.EvidenceHit, len(evidence))
	copy(sorted, evidence)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	var b strings.Builder
	for i, hit := range sorted {
		section := hit.Provenance.Section
		if section == "" {
			section = "Unknown"
		}
		fmt.Fprintf(&b, "[Excerpt %d] (Page %d, Section: %s)\n%s\n\n", i+1, hit.Provenance.Page, section, strings.TrimSpace(hit.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}
