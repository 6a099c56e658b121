package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexaudit/lexaudit/internal/config"
)

func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ChunkingConfig
		wantErr bool
	}{
		{"valid", config.ChunkingConfig{ChunkSize: 100, Overlap: 20}, false},
		{"zero overlap", config.ChunkingConfig{ChunkSize: 100, Overlap: 0}, false},
		{"overlap equals size", config.ChunkingConfig{ChunkSize: 100, Overlap: 100}, true},
		{"overlap exceeds size", config.ChunkingConfig{ChunkSize: 100, Overlap: 150}, true},
		{"negative overlap", config.ChunkingConfig{ChunkSize: 100, Overlap: -1}, true},
		{"zero chunk size", config.ChunkingConfig{ChunkSize: 0, Overlap: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, config.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

// reconstruct joins chunks, dropping each successor's leading overlap runes.
func reconstruct(chunks []Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[overlap:]
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

func TestSplitReconstructsInput(t *testing.T) {
	texts := []string{
		"",
		"short",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200),
		"PART I\nINTRODUCTION\n\n" + strings.Repeat("Lorem ipsum dolor sit amet.\n", 150),
		strings.Repeat("x", 5000),                          // no separators at all
		strings.Repeat("Äußerst präzise Maßnahmen. ", 300), // multi-byte runes
	}

	for _, overlap := range []int{0, 50, 199} {
		splitter, err := NewSplitter(config.ChunkingConfig{ChunkSize: 400, Overlap: overlap})
		require.NoError(t, err)

		for i, text := range texts {
			chunks := splitter.Split(text)
			assert.Equal(t, text, reconstruct(chunks, overlap), "text %d overlap %d", i, overlap)
		}
	}
}

func TestSplitExactOverlap(t *testing.T) {
	splitter, err := NewSplitter(config.ChunkingConfig{ChunkSize: 300, Overlap: 60})
	require.NoError(t, err)

	text := strings.Repeat("All persons meeting the criteria in section four are eligible. ", 100)
	chunks := splitter.Split(text)
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		curr := []rune(chunks[i].Text)
		tail := string(prev[len(prev)-60:])
		head := string(curr[:60])
		assert.Equal(t, tail, head, "chunks %d/%d", i-1, i)
		assert.Equal(t, chunks[i-1].Start+len(prev)-60, chunks[i].Start)
	}
}

func TestSplitShortText(t *testing.T) {
	splitter, err := NewSplitter(config.ChunkingConfig{ChunkSize: 1000, Overlap: 100})
	require.NoError(t, err)

	chunks := splitter.Split("A single short paragraph.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, "A single short paragraph.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Page)
}

func TestSplitPrefersSentenceBreaks(t *testing.T) {
	splitter, err := NewSplitter(config.ChunkingConfig{ChunkSize: 200, Overlap: 20})
	require.NoError(t, err)

	text := strings.Repeat("A complete sentence about statutory payments. ", 40)
	chunks := splitter.Split(text)
	require.Greater(t, len(chunks), 1)

	// Every non-final chunk should end at a sentence boundary rather than a
	// mid-word hard cut.
	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c.Text, ". "), "chunk %d ends %q", c.Seq, c.Text[len(c.Text)-10:])
	}
}

func TestSectionDetection(t *testing.T) {
	splitter, err := NewSplitter(config.ChunkingConfig{ChunkSize: 120, Overlap: 10})
	require.NoError(t, err)

	text := "PART II\nEligibility requirements apply to all claimants under this act. " +
		strings.Repeat("Further conditions follow in later provisions. ", 20)
	chunks := splitter.Split(text)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "PART II", chunks[0].Section)
	// Section carries forward until the next header.
	assert.Equal(t, "PART II", chunks[len(chunks)-1].Section)
}

func TestDetectSection(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"CHAPTER 3\nsome text", "CHAPTER 3"},
		{"Article IV provisions", "Article IV provisions"},
		{"1. Interpretation\nbody", "1. Interpretation"},
		{"DEFINITIONS AND SCOPE\nbody", "DEFINITIONS AND SCOPE"},
		{"plain body text with no header", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectSection(tt.text), tt.text)
	}
}

func TestEstimatePage(t *testing.T) {
	assert.Equal(t, 1, estimatePage(0, 10000))
	assert.Equal(t, 51, estimatePage(5000, 10000))
	assert.Equal(t, 100, estimatePage(9999, 10000))
	assert.Equal(t, 1, estimatePage(0, 0))
}

func TestComputeStats(t *testing.T) {
	chunks := []Chunk{
		{Seq: 0, Text: "aaaa", Section: "PART I"},
		{Seq: 1, Text: "bbbbbbbb", Section: "PART I"},
		{Seq: 2, Text: "cc", Section: "PART II"},
	}
	stats := ComputeStats(chunks)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.MinChunkSize)
	assert.Equal(t, 8, stats.MaxChunkSize)
	assert.InDelta(t, 14.0/3.0, stats.AvgChunkSize, 0.001)
	assert.Equal(t, 2, stats.UniqueSections)

	assert.Equal(t, Stats{}, ComputeStats(nil))
}
