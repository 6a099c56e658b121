// Package pipeline orchestrates a full document analysis run: chunking,
// index build, summary generation, per-category correction loops, rule
// checks, and report assembly.
package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexaudit/lexaudit/internal/chunker"
	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/correction"
	"github.com/lexaudit/lexaudit/internal/extraction"
	"github.com/lexaudit/lexaudit/internal/index"
	"github.com/lexaudit/lexaudit/internal/report"
	"github.com/lexaudit/lexaudit/internal/retrieval"
	"github.com/lexaudit/lexaudit/internal/rules"
)

var pipelineTracer = otel.Tracer("lexaudit.pipeline")

// summarySampleSize is the number of chunks sampled for the document summary.
const summarySampleSize = 10

// Analyzer produces structured extractions and document summaries.
// extraction.Extractor is the production implementation.
type Analyzer interface {
	correction.Extractor
	Summarize(ctx context.Context, excerpts []index.EvidenceHit) (map[string]any, error)
}

// Outcome is the result of one full run.
type Outcome struct {
	Report *report.Report

	// Path is where the report was persisted.
	Path string
}

// Pipeline runs end-to-end document analysis. One Pipeline serves many
// documents; per-run state lives on the stack of Run.
type Pipeline struct {
	cfg       *config.Config
	splitter  *chunker.Splitter
	indexes   *index.Manager
	retriever *retrieval.Retriever
	analyzer  Analyzer
	checker   *rules.Checker
	writer    *report.Writer
	logger    *zap.Logger
}

// New wires a pipeline from its stages.
func New(cfg *config.Config, indexes *index.Manager, analyzer Analyzer, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if indexes == nil {
		return nil, fmt.Errorf("index manager is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	splitter, err := chunker.NewSplitter(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:       cfg,
		splitter:  splitter,
		indexes:   indexes,
		retriever: retrieval.NewRetriever(cfg.Retrieval, logger.Named("retrieval")),
		analyzer:  analyzer,
		checker:   rules.NewChecker(cfg.Correction),
		writer:    report.NewWriter(cfg.Reports, logger.Named("report")),
		logger:    logger,
	}, nil
}

// Run analyzes one document and persists its report.
//
// Categories run concurrently on a bounded worker pool, sharing the read-only
// index. A failing category degrades to a low-confidence section instead of
// aborting the run; only chunking, index build, and assembly failures are
// fatal. Cancelling the context abandons the run without writing a report.
func (p *Pipeline) Run(ctx context.Context, documentName, text string) (*Outcome, error) {
	ctx, span := pipelineTracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("document", documentName))

	log := p.logger.With(zap.String("document", documentName))

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %q produced no chunks", documentName)
	}
	log.Info("document chunked", zap.Int("chunks", len(chunks)))

	idx, err := p.indexes.Build(ctx, documentName, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("building index: %w", err)
	}

	summary := p.summarize(ctx, documentName, chunks)

	sections, err := p.runCategories(ctx, idx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	verdicts := p.checker.Check(rules.Rules(), sections)

	rep, err := report.Assemble(documentName, summary, sections, verdicts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("assembling report: %w", err)
	}

	path, err := p.writer.Write(rep)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("writing report: %w", err)
	}

	span.SetAttributes(attribute.Float64("pass_rate", rep.RuleChecks.Summary.PassRate))
	span.SetStatus(codes.Ok, "success")
	log.Info("analysis complete",
		zap.String("report", path),
		zap.Float64("pass_rate", rep.RuleChecks.Summary.PassRate),
		zap.String("compliance", rep.RuleChecks.Summary.ComplianceStatus),
	)
	return &Outcome{Report: rep, Path: path}, nil
}

// runCategories executes one correction loop per category on a bounded pool.
// Loops never fail individually; the only error out of here is cancellation.
func (p *Pipeline) runCategories(ctx context.Context, idx *index.Index) (map[string]correction.Result, error) {
	schemas := extraction.Schemas()
	results := make([]correction.Result, len(schemas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Workers)
	for i, schema := range schemas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loop := correction.NewLoop(
				p.cfg.Correction,
				p.cfg.Retrieval.TopK,
				p.retriever,
				p.analyzer,
				p.logger.Named("correction"),
			)
			results[i] = loop.Run(gctx, idx, schema)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("category analysis aborted: %w", err)
	}
	// A cancelled context degrades every loop to EXHAUSTED rather than
	// erroring; refuse to write that report.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("category analysis aborted: %w", err)
	}

	sections := make(map[string]correction.Result, len(results))
	for _, r := range results {
		sections[r.Category] = r
	}
	return sections, nil
}

// summarize generates the document summary from evenly sampled chunks.
// Summary failure is not fatal; the report carries an empty summary.
func (p *Pipeline) summarize(ctx context.Context, documentName string, chunks []chunker.Chunk) map[string]any {
	sampled := sampleChunks(chunks, summarySampleSize)
	excerpts := make([]index.EvidenceHit, len(sampled))
	for i, c := range sampled {
		excerpts[i] = index.EvidenceHit{
			ChunkID: fmt.Sprintf("chunk_%04d", c.Seq),
			Seq:     c.Seq,
			Text:    c.Text,
			Provenance: index.Provenance{
				Document: documentName,
				Page:     c.Page,
				Section:  c.Section,
				Start:    c.Start,
			},
		}
	}

	summary, err := p.analyzer.Summarize(ctx, excerpts)
	if err != nil {
		p.logger.Warn("summary generation failed",
			zap.String("document", documentName),
			zap.Error(err),
		)
		return map[string]any{}
	}
	return summary
}

// sampleChunks picks n chunks evenly across the document.
func sampleChunks(chunks []chunker.Chunk, n int) []chunker.Chunk {
	if len(chunks) <= n {
		return chunks
	}
	step := len(chunks) / n
	out := make([]chunker.Chunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, chunks[i*step])
	}
	return out
}
