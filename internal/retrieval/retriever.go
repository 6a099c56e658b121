// Package retrieval composes evidence sets from the vector index.
//
// A retrieval runs several sub-queries for one extraction attempt, merges the
// hits, and enforces two guarantees the raw index does not: no chunk appears
// twice in one evidence set, and the total evidence text stays within a
// character budget.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/index"
)

// Retriever returns deduplicated, budget-capped evidence for queries.
type Retriever struct {
	cfg    config.RetrievalConfig
	logger *zap.Logger
}

// NewRetriever creates a retriever.
func NewRetriever(cfg config.RetrievalConfig, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{cfg: cfg, logger: logger}
}

// Retrieve runs every sub-query against the index with the given k and
// merges the results.
//
// Duplicate chunk ids keep their highest score. The merged set is sorted by
// descending score (ties in document order) and trimmed to the configured
// character budget, dropping the lowest-scoring hits first. The top hit is
// always kept so an oversized chunk cannot empty the evidence set.
func (r *Retriever) Retrieve(ctx context.Context, idx *index.Index, queries []string, k int) ([]index.EvidenceHit, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("at least one query is required")
	}

	best := make(map[string]index.EvidenceHit)
	for _, query := range queries {
		hits, err := idx.Query(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("retrieving evidence for %q: %w", query, err)
		}
		for _, hit := range hits {
			if existing, ok := best[hit.ChunkID]; !ok || hit.Score > existing.Score {
				best[hit.ChunkID] = hit
			}
		}
	}

	merged := make([]index.EvidenceHit, 0, len(best))
	for _, hit := range best {
		merged = append(merged, hit)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Seq < merged[j].Seq
	})

	capped := r.capChars(merged)
	if len(capped) < len(merged) {
		r.logger.Debug("evidence trimmed to character budget",
			zap.Int("kept", len(capped)),
			zap.Int("dropped", len(merged)-len(capped)),
			zap.Int("budget", r.cfg.MaxEvidenceChars),
		)
	}
	return capped, nil
}

// capChars keeps the highest-scoring prefix whose total text length fits the
// budget.
func (r *Retriever) capChars(hits []index.EvidenceHit) []index.EvidenceHit {
	total := 0
	for i, hit := range hits {
		total += len(hit.Text)
		if total > r.cfg.MaxEvidenceChars && i > 0 {
			return hits[:i]
		}
	}
	return hits
}
