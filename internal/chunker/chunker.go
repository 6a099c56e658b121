// Package chunker splits cleaned document text into overlapping chunks for
// indexing.
//
// Chunks carry provenance (estimated page, detected section header, character
// offset) so that evidence can be traced back to its position in the source
// document. Splitting guarantees that every character of the input appears in
// at least one chunk and that adjacent chunks share exactly the configured
// overlap.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lexaudit/lexaudit/internal/config"
)

// Chunk is a bounded span of document text, not yet embedded.
// Chunks are immutable once created and identified by (document, Seq).
type Chunk struct {
	// Seq is the zero-based position of the chunk in document order.
	Seq int `json:"seq"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Start is the rune offset of the chunk in the source text.
	Start int `json:"start"`

	// Page is the estimated page number (1-based).
	Page int `json:"page"`

	// Section is the most recent section header seen at or before this
	// chunk, or "Unknown".
	Section string `json:"section"`
}

// sectionPatterns detect legal section headers: "PART I", "CHAPTER 2",
// numbered headings, and ALL-CAPS lines.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:PART|CHAPTER|SECTION|ARTICLE)\s+[IVX\d]+`),
	regexp.MustCompile(`^\d+\.\s+[A-Z][A-Za-z\s]+$`),
	regexp.MustCompile(`^[A-Z][A-Z\s]{3,}$`),
}

// Splitter splits text into overlapping chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter from chunking configuration.
// Returns config.ErrInvalidConfig when overlap >= chunk size.
func NewSplitter(cfg config.ChunkingConfig) (*Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", config.ErrInvalidConfig, cfg.ChunkSize)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", config.ErrInvalidConfig, cfg.Overlap, cfg.ChunkSize)
	}
	return &Splitter{chunkSize: cfg.ChunkSize, overlap: cfg.Overlap}, nil
}

// Split splits text into chunks of at most the configured size.
//
// Invariants:
//   - concatenating the chunks with each successor's leading overlap removed
//     reconstructs the input exactly;
//   - each chunk after the first begins exactly overlap runes before its
//     predecessor's end;
//   - the final chunk may be shorter than the chunk size.
//
// Chunk ends prefer paragraph, line, and sentence breaks near the window
// boundary; a hard cut at the window size is the fallback.
func (s *Splitter) Split(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return []Chunk{}
	}

	var chunks []Chunk
	section := "Unknown"
	start := 0

	for {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.adjustEnd(runes, start, end)
		}

		body := string(runes[start:end])
		if header := detectSection(body); header != "" {
			section = header
		}

		chunks = append(chunks, Chunk{
			Seq:     len(chunks),
			Text:    body,
			Start:   start,
			Page:    estimatePage(start, len(runes)),
			Section: section,
		})

		if end == len(runes) {
			return chunks
		}
		start = end - s.overlap
	}
}

// adjustEnd moves a hard cut back to the nearest paragraph, line, or sentence
// break inside the last quarter of the window. The cut never moves to or
// before start+overlap, so the next chunk always makes progress.
func (s *Splitter) adjustEnd(runes []rune, start, end int) int {
	window := string(runes[start:end])
	floor := s.chunkSize - s.chunkSize/4
	if floor <= s.overlap {
		floor = s.overlap + 1
	}

	for _, sep := range []string{"\n\n", "\n", ". "} {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			cut := len([]rune(window[:idx+len(sep)]))
			if cut > floor {
				return start + cut
			}
		}
	}
	return end
}

// detectSection scans the first lines of a chunk for a section header.
func detectSection(text string) string {
	lines := strings.SplitN(text, "\n", 4)
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, pattern := range sectionPatterns {
			if pattern.MatchString(line) {
				return line
			}
		}
	}
	return ""
}

// estimatePage approximates a 1-based page number from the chunk position,
// assuming roughly 100 pages per document when no page markers exist.
func estimatePage(start, total int) int {
	if total == 0 {
		return 1
	}
	page := start*100/total + 1
	if page > 100 {
		page = 100
	}
	return page
}

// Stats summarizes a chunk set for logging and diagnostics.
type Stats struct {
	TotalChunks    int      `json:"total_chunks"`
	AvgChunkSize   float64  `json:"avg_chunk_size"`
	MinChunkSize   int      `json:"min_chunk_size"`
	MaxChunkSize   int      `json:"max_chunk_size"`
	UniqueSections int      `json:"unique_sections"`
	Sections       []string `json:"sections"`
}

// ComputeStats returns aggregate statistics for chunks.
func ComputeStats(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks:  len(chunks),
		MinChunkSize: len(chunks[0].Text),
	}
	seen := make(map[string]bool)
	total := 0

	for _, c := range chunks {
		size := len(c.Text)
		total += size
		if size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
		if !seen[c.Section] {
			seen[c.Section] = true
			stats.Sections = append(stats.Sections, c.Section)
		}
	}

	stats.AvgChunkSize = float64(total) / float64(len(chunks))
	stats.UniqueSections = len(seen)
	return stats
}
