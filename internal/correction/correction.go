// Package correction runs the bounded self-correction loop for one category.
//
// The loop is an explicit state machine: INITIAL -> EXTRACTED -> EVALUATED ->
// {ACCEPTED | RETRYING | EXHAUSTED}. ACCEPTED and EXHAUSTED are both terminal
// and both produce a Result; downstream consumers distinguish them only via
// the confidence and Accepted fields, so one flaky category can never block
// the rest of a run.
package correction

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lexaudit/lexaudit/internal/config"
	"github.com/lexaudit/lexaudit/internal/extraction"
	"github.com/lexaudit/lexaudit/internal/index"
)

var correctionTracer = otel.Tracer("lexaudit.correction")

// State is a phase of the correction loop.
type State int

const (
	StateInitial State = iota
	StateExtracted
	StateEvaluated
	StateRetrying
	StateAccepted
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateExtracted:
		return "EXTRACTED"
	case StateEvaluated:
		return "EVALUATED"
	case StateRetrying:
		return "RETRYING"
	case StateAccepted:
		return "ACCEPTED"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// Result is the terminal output of the loop for one category. It is immutable
// once returned.
type Result struct {
	// Category is the extraction category.
	Category string `json:"category"`

	// FinalFields is the kept candidate's field mapping; empty when every
	// attempt failed.
	FinalFields map[string]any `json:"final_fields"`

	// Confidence is the combined confidence in [0,100] of the last
	// evaluated attempt, or 0 when no attempt was ever evaluated.
	Confidence float64 `json:"confidence"`

	// Evidence is the kept candidate's evidence set.
	Evidence []index.EvidenceHit `json:"evidence_sources"`

	// IterationsUsed counts extraction attempts, including failed ones.
	// Always between 1 and retry budget + 1.
	IterationsUsed int `json:"iterations_used"`

	// Accepted is true when the terminal state is ACCEPTED.
	Accepted bool `json:"accepted"`

	// Error annotates results whose final attempt failed. Empty otherwise.
	Error string `json:"error,omitempty"`
}

// Extractor produces one candidate per attempt.
type Extractor interface {
	Extract(ctx context.Context, schema extraction.Schema, evidence []index.EvidenceHit) (extraction.Candidate, error)
}

// EvidenceSource fetches the evidence set for one attempt.
type EvidenceSource interface {
	Retrieve(ctx context.Context, idx *index.Index, queries []string, k int) ([]index.EvidenceHit, error)
}

// Loop drives the self-correction state machine. A Loop is stateless across
// Run calls; each category run owns its own iteration state, so categories
// can run concurrently against the same read-only index.
type Loop struct {
	cfg       config.CorrectionConfig
	topK      int
	evidence  EvidenceSource
	extractor Extractor
	logger    *zap.Logger
}

// NewLoop creates a correction loop.
func NewLoop(cfg config.CorrectionConfig, topK int, evidence EvidenceSource, extractor Extractor, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:       cfg,
		topK:      topK,
		evidence:  evidence,
		extractor: extractor,
		logger:    logger,
	}
}

// Run executes the correction loop for one category and always returns a
// terminal Result. Generation and retrieval failures consume attempts; if
// every attempt fails the Result is EXHAUSTED with confidence 0 and an error
// annotation, never an error return.
func (l *Loop) Run(ctx context.Context, idx *index.Index, schema extraction.Schema) Result {
	ctx, span := correctionTracer.Start(ctx, "Loop.Run")
	defer span.End()
	span.SetAttributes(attribute.String("category", schema.Category))

	log := l.logger.With(zap.String("category", schema.Category))

	maxAttempts := l.cfg.RetryBudget + 1
	k := l.topK
	queries := schema.Queries

	var (
		last     extraction.Candidate
		lastEval evaluation
		haveEval bool
		lastErr  error
	)

	state := StateInitial
	log.Debug("state transition", zap.String("state", state.String()))
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		state = StateExtracted
		log.Debug("state transition",
			zap.String("state", state.String()),
			zap.Int("attempt", attempt),
			zap.Int("k", k),
		)

		candidate, err := l.attempt(ctx, idx, schema, queries, k)
		if err != nil {
			// A failed attempt consumes budget like any other.
			lastErr = err
			log.Warn("extraction attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		lastErr = nil

		state = StateEvaluated
		eval := evaluate(l.cfg, schema, candidate)
		last, lastEval, haveEval = candidate, eval, true
		log.Debug("candidate evaluated",
			zap.String("state", state.String()),
			zap.Int("attempt", attempt),
			zap.Float64("combined", eval.Combined),
			zap.Float64("completeness", eval.Completeness),
			zap.Float64("evidence_quality", eval.EvidenceQuality),
			zap.Bool("parse_failed", candidate.ParseFailed),
		)

		if eval.Combined >= l.cfg.AcceptThreshold {
			return l.finish(span, log, schema, last, lastEval, attempt, "")
		}
		if attempt < maxAttempts {
			state = StateRetrying
			k = widenK(k, l.cfg.WidenStep, l.cfg.MaxK)
			if len(schema.WidenQueries) > 0 {
				queries = schema.WidenQueries
			}
			log.Debug("state transition",
				zap.String("state", state.String()),
				zap.Int("next_k", k),
			)
		}
	}

	if !haveEval {
		// Every attempt failed: terminal EXHAUSTED with confidence 0.
		span.SetStatus(codes.Error, "all attempts failed")
		log.Warn("correction exhausted with no evaluated candidate", zap.Error(lastErr))
		return Result{
			Category:       schema.Category,
			FinalFields:    map[string]any{},
			Confidence:     0,
			IterationsUsed: maxAttempts,
			Accepted:       false,
			Error:          lastErr.Error(),
		}
	}

	annotation := ""
	if lastErr != nil {
		annotation = lastErr.Error()
	}
	return l.finish(span, log, schema, last, lastEval, maxAttempts, annotation)
}

// finish builds the terminal Result from the last evaluated candidate.
// ACCEPTED requires the combined confidence to clear the floor; below it the
// result is flagged EXHAUSTED but still returned.
func (l *Loop) finish(span trace.Span, log *zap.Logger, schema extraction.Schema, candidate extraction.Candidate, eval evaluation, iterations int, annotation string) Result {
	terminal := StateAccepted
	if eval.Combined < l.cfg.FloorThreshold {
		terminal = StateExhausted
	}

	span.SetAttributes(
		attribute.String("terminal_state", terminal.String()),
		attribute.Float64("confidence", eval.Combined),
		attribute.Int("iterations", iterations),
	)
	span.SetStatus(codes.Ok, terminal.String())
	log.Info("correction finished",
		zap.String("state", terminal.String()),
		zap.Float64("confidence", eval.Combined),
		zap.Int("iterations", iterations),
	)

	fields := candidate.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return Result{
		Category:       schema.Category,
		FinalFields:    fields,
		Confidence:     eval.Combined,
		Evidence:       candidate.Evidence,
		IterationsUsed: iterations,
		Accepted:       terminal == StateAccepted,
		Error:          annotation,
	}
}

// attempt runs retrieval and extraction for one iteration.
func (l *Loop) attempt(ctx context.Context, idx *index.Index, schema extraction.Schema, queries []string, k int) (extraction.Candidate, error) {
	evidence, err := l.evidence.Retrieve(ctx, idx, queries, k)
	if err != nil {
		return extraction.Candidate{}, err
	}
	return l.extractor.Extract(ctx, schema, evidence)
}

// widenK grows the retrieval k for a retry, capped at max.
func widenK(k, step, max int) int {
	k += step
	if k > max {
		return max
	}
	return k
}
