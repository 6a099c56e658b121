package extraction

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Parse parses model output into a tagged result. Markdown code fences are
// stripped first since models wrap JSON in them despite instructions.
// Non-JSON output yields a Malformed result, never an error.
func Parse(raw string) ParseResult {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return ParseResult{Malformed: true, Raw: raw}
	}
	return ParseResult{Fields: fields, Raw: raw}
}

// popConfidence removes and returns the model's self-reported "confidence"
// field, clamped to [0,100]. Models sometimes quote the number ("85"), so
// numeric strings are coerced; anything else is 0.
func popConfidence(fields map[string]any) float64 {
	v, ok := fields["confidence"]
	if !ok {
		return 0
	}
	delete(fields, "confidence")

	var confidence float64
	switch t := v.(type) {
	case float64:
		confidence = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		confidence = parsed
	default:
		return 0
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
