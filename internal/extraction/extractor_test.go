package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/index"
	"github.com/lexaudit/lexaudit/internal/llm"
)

// scriptedClient replays canned responses or errors, recording prompts.
type scriptedClient struct {
	responses []string
	err       error
	prompts   []string
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}

func eligibilityEvidence() []index.EvidenceHit {
	return []index.EvidenceHit{
		{ChunkID: "chunk_0001", Seq: 1, Text: "Persons over 18 are eligible.", Score: 0.9,
			Provenance: index.Provenance{Document: "act", Page: 3, Section: "PART II"}},
		{ChunkID: "chunk_0005", Seq: 5, Text: "Residency is required.", Score: 0.7,
			Provenance: index.Provenance{Document: "act", Page: 7, Section: "PART III"}},
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		malformed bool
	}{
		{"plain json", `{"terms": []}`, false},
		{"fenced json", "```json\n{\"terms\": []}\n```", false},
		{"bare fence", "```\n{\"terms\": []}\n```", false},
		{"whitespace", "  {\"a\": 1}  ", false},
		{"prose", "I could not find any definitions.", true},
		{"truncated", `{"terms": [`, true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.raw)
			assert.Equal(t, tt.malformed, result.Malformed)
			assert.Equal(t, tt.raw, result.Raw)
			if !tt.malformed {
				assert.NotNil(t, result.Fields)
			}
		})
	}
}

func TestPopConfidence(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   float64
	}{
		{"present", map[string]any{"confidence": 85.0, "terms": []any{}}, 85},
		{"missing", map[string]any{"terms": []any{}}, 0},
		{"clamped high", map[string]any{"confidence": 250.0}, 100},
		{"clamped low", map[string]any{"confidence": -5.0}, 0},
		{"non-numeric", map[string]any{"confidence": "high"}, 0},
		{"quoted number", map[string]any{"confidence": "85"}, 85},
		{"quoted decimal with spaces", map[string]any{"confidence": " 72.5 "}, 72.5},
		{"quoted clamped", map[string]any{"confidence": "300"}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := popConfidence(tt.fields)
			assert.Equal(t, tt.want, got)
			_, present := tt.fields["confidence"]
			assert.False(t, present, "confidence must be removed from fields")
		})
	}
}

func TestSchemaCoverage(t *testing.T) {
	all := Schemas()
	require.Len(t, all, 6)
	for _, s := range all {
		assert.NotEmpty(t, s.RequiredFields, s.Category)
		assert.NotEmpty(t, s.Queries, s.Category)
		assert.NotEmpty(t, s.WidenQueries, s.Category)
		assert.Contains(t, s.Instruction, "confidence", s.Category)
	}

	_, err := SchemaFor("treaties")
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"criteria": [{"requirement": "over 18"}], "confidence": 85}`,
	}}
	extractor, err := NewExtractor(client, zap.NewNop())
	require.NoError(t, err)

	schema, err := SchemaFor(CategoryEligibility)
	require.NoError(t, err)

	candidate, err := extractor.Extract(context.Background(), schema, eligibilityEvidence())
	require.NoError(t, err)

	assert.Equal(t, CategoryEligibility, candidate.Category)
	assert.Equal(t, 85.0, candidate.SelfConfidence)
	assert.False(t, candidate.ParseFailed)
	assert.Len(t, candidate.Evidence, 2)
	assert.Contains(t, candidate.Fields, "criteria")
	assert.NotContains(t, candidate.Fields, "confidence")
}

func TestExtractMalformedOutput(t *testing.T) {
	client := &scriptedClient{responses: []string{"Sorry, I cannot help with that."}}
	extractor, err := NewExtractor(client, zap.NewNop())
	require.NoError(t, err)

	schema, err := SchemaFor(CategoryDefinitions)
	require.NoError(t, err)

	candidate, err := extractor.Extract(context.Background(), schema, eligibilityEvidence())
	require.NoError(t, err, "malformed output is data, not an error")

	assert.True(t, candidate.ParseFailed)
	assert.Zero(t, candidate.SelfConfidence)
	assert.Empty(t, candidate.Fields)
	assert.Equal(t, "Sorry, I cannot help with that.", candidate.RawOutput)
}

func TestExtractGenerationError(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("%w: connection refused", llm.ErrGeneration)}
	extractor, err := NewExtractor(client, zap.NewNop())
	require.NoError(t, err)

	schema, err := SchemaFor(CategoryPayments)
	require.NoError(t, err)

	_, err = extractor.Extract(context.Background(), schema, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrGeneration))
}

func TestPromptIsDeterministic(t *testing.T) {
	schema, err := SchemaFor(CategoryEligibility)
	require.NoError(t, err)

	evidence := eligibilityEvidence()
	first := buildExtractionPrompt(schema, evidence)
	second := buildExtractionPrompt(schema, evidence)
	assert.Equal(t, first, second)

	// Evidence order in the prompt follows descending score even when the
	// input slice is shuffled.
	reversed := []index.EvidenceHit{evidence[1], evidence[0]}
	assert.Equal(t, first, buildExtractionPrompt(schema, reversed))

	higher := strings.Index(first, "Persons over 18 are eligible.")
	lower := strings.Index(first, "Residency is required.")
	require.GreaterOrEqual(t, higher, 0)
	require.GreaterOrEqual(t, lower, 0)
	assert.Less(t, higher, lower, "higher-scoring evidence comes first")
}

func TestPromptContainsProvenance(t *testing.T) {
	schema, err := SchemaFor(CategoryEligibility)
	require.NoError(t, err)

	prompt := buildExtractionPrompt(schema, eligibilityEvidence())
	assert.Contains(t, prompt, "Category: ELIGIBILITY")
	assert.Contains(t, prompt, "[Excerpt 1] (Page 3, Section: PART II)")
	assert.Contains(t, prompt, "[Excerpt 2] (Page 7, Section: PART III)")
	assert.Contains(t, prompt, "Respond ONLY with valid JSON")
}

func TestSummarize(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"title": "Benefits Act", "document_type": "Act", "key_topics": ["payments"]}`,
	}}
	extractor, err := NewExtractor(client, zap.NewNop())
	require.NoError(t, err)

	summary, err := extractor.Summarize(context.Background(), eligibilityEvidence())
	require.NoError(t, err)
	assert.Equal(t, "Benefits Act", summary["title"])
	assert.Contains(t, client.prompts[0], "comprehensive summary")
}

func TestSummarizeMalformed(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json"}}
	extractor, err := NewExtractor(client, zap.NewNop())
	require.NoError(t, err)

	summary, err := extractor.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
}
