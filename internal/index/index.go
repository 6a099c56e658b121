// Package index provides the per-document vector index over chromem-go.
//
// An Index is built once from a document's chunks and is immutable afterward:
// queries never mutate it, and rebuilding a document produces a fresh Index
// that replaces the published one atomically. Readers holding the prior Index
// finish their queries against a consistent snapshot.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/chunker"
)

var indexTracer = otel.Tracer("lexaudit.index")

// Sentinel errors for index operations.
var (
	// ErrEmptyChunks indicates a build with no chunks.
	ErrEmptyChunks = errors.New("no chunks to index")

	// ErrNotFound is returned when no index exists for a document.
	ErrNotFound = errors.New("index not found")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query")
)

// chunkCollection is the collection name inside each per-document database.
const chunkCollection = "chunks"

// Embedder generates vector embeddings from text.
//
// Implementations treat the embedding model as a black box; transport and
// quota failures surface as embeddings.ErrEmbeddingFailed.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provenance locates an evidence hit in its source document.
type Provenance struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Section  string `json:"section"`
	Start    int    `json:"start"`
}

// EvidenceHit is one retrieval result. Hits are never mutated after creation.
type EvidenceHit struct {
	ChunkID    string     `json:"chunk_id"`
	Seq        int        `json:"seq"`
	Text       string     `json:"text"`
	Score      float32    `json:"score"`
	Provenance Provenance `json:"provenance"`
}

// Index is a built, read-only vector index for one document.
type Index struct {
	documentID string
	collection *chromem.Collection
	count      int
	dimension  int
}

// DocumentID returns the id of the indexed document.
func (idx *Index) DocumentID() string { return idx.documentID }

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return idx.count }

// Dimension returns the embedding dimension.
func (idx *Index) Dimension() int { return idx.dimension }

// Query returns up to k evidence hits sorted by descending similarity, ties
// broken by original chunk order. k must be >= 1; when the index holds fewer
// than k chunks all of them are returned.
func (idx *Index) Query(ctx context.Context, queryText string, k int) ([]EvidenceHit, error) {
	ctx, span := indexTracer.Start(ctx, "Index.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("document_id", idx.documentID),
		attribute.Int("k", k),
	)

	if k < 1 {
		return nil, fmt.Errorf("%w: k must be >= 1, got %d", ErrInvalidQuery, k)
	}
	if queryText == "" {
		return nil, fmt.Errorf("%w: query text cannot be empty", ErrInvalidQuery)
	}
	if k > idx.count {
		k = idx.count
	}

	results, err := idx.collection.Query(ctx, queryText, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying index for %s: %w", idx.documentID, err)
	}

	hits := make([]EvidenceHit, len(results))
	for i, r := range results {
		hits[i] = EvidenceHit{
			ChunkID: r.ID,
			Seq:     atoiOr(r.Metadata["seq"], i),
			Text:    r.Content,
			Score:   r.Similarity,
			Provenance: Provenance{
				Document: idx.documentID,
				Page:     atoiOr(r.Metadata["page"], 0),
				Section:  r.Metadata["section"],
				Start:    atoiOr(r.Metadata["start"], 0),
			},
		}
	}

	// chromem returns hits sorted by similarity but leaves tie order
	// unspecified; re-sort stably so ties follow document order.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Seq < hits[j].Seq
	})

	span.SetAttributes(attribute.Int("results", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// Manager builds and publishes per-document indexes.
//
// Build is atomic: either a fully embedded index is published, or nothing
// changes. Rebuilding a document id swaps the published pointer; in-flight
// queries against the previous Index complete against its snapshot.
type Manager struct {
	embedder Embedder
	logger   *zap.Logger

	// indexes maps documentID -> *Index.
	indexes sync.Map
}

// NewManager creates an index manager.
func NewManager(embedder Embedder, logger *zap.Logger) (*Manager, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{embedder: embedder, logger: logger}, nil
}

// Build embeds chunks and publishes the index for documentID, replacing any
// previous index for the same document.
func (m *Manager) Build(ctx context.Context, documentID string, chunks []chunker.Chunk) (*Index, error) {
	ctx, span := indexTracer.Start(ctx, "Manager.Build")
	defer span.End()
	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.Int("chunk_count", len(chunks)),
	)

	if documentID == "" {
		return nil, errors.New("document id is required")
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyChunks
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding %d chunks for %s: %w", len(chunks), documentID, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	dimension := len(embeddings[0])
	for i, e := range embeddings {
		if len(e) != dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(e), dimension)
		}
	}

	// Each index gets its own in-memory database so a rebuild can never be
	// observed half-written: the new collection is fully populated before
	// the pointer swap below.
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(chunkCollection, nil, m.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("chunk_%04d", c.Seq),
			Content: c.Text,
			Metadata: map[string]string{
				"seq":     strconv.Itoa(c.Seq),
				"page":    strconv.Itoa(c.Page),
				"section": c.Section,
				"start":   strconv.Itoa(c.Start),
			},
			Embedding: embeddings[i],
		}
	}

	// Concurrency of 1: embeddings are precomputed, so there is no work to
	// parallelize.
	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	idx := &Index{
		documentID: documentID,
		collection: collection,
		count:      len(chunks),
		dimension:  dimension,
	}
	m.indexes.Store(documentID, idx)

	span.SetStatus(codes.Ok, "success")
	m.logger.Info("index built",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", dimension),
	)
	return idx, nil
}

// Get returns the published index for documentID.
func (m *Manager) Get(documentID string) (*Index, error) {
	v, ok := m.indexes.Load(documentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return v.(*Index), nil
}

// Drop removes the published index for documentID. In-flight queries against
// the removed index finish normally.
func (m *Manager) Drop(documentID string) {
	m.indexes.Delete(documentID)
}

// embeddingFunc adapts the Embedder for chromem query-time embedding.
func (m *Manager) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return m.embedder.EmbedQuery(ctx, text)
	}
}
