package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dancherbu/physical-visual-tester/internal/embedding"
	"github.com/dancherbu/physical-visual-tester/internal/extract"
)

// Outcome is the gate's decision for one candidate element.
type Outcome int

const (
	// OutcomeKnown: the store already holds a near-duplicate; nothing
	// was asked or written.
	OutcomeKnown Outcome = iota
	// OutcomeLearned: a new record was written to the store.
	OutcomeLearned
	// OutcomeQuestioned: too uncertain to persist; an open question was
	// queued for a human or a higher-level planner.
	OutcomeQuestioned
	// OutcomeSkipped: too uncertain to persist and the question budget
	// is exhausted.
	OutcomeSkipped
)

// PurposeFunc infers a purpose for a label when the gate needs one.
// Returning "" means no usable answer.
type PurposeFunc func(ctx context.Context, label string) string

// GateConfig holds the admission-control thresholds.
type GateConfig struct {
	// MemoryThreshold: nearest-neighbor score at or above which an
	// element counts as already known. Default 0.88.
	MemoryThreshold float64
	// VisionThreshold: minimum confidence to persist a record. Default 0.72.
	VisionThreshold float64
	// MinQuestions caps how many open questions one run may emit.
	MinQuestions int
}

// Gate is the admission-control policy between candidate elements and
// the knowledge store. It trades completeness for store quality:
// low-confidence and already-represented facts are refused, and the cost
// of asking about the same screen is bounded.
type Gate struct {
	engine       embedding.Engine
	store        *Store
	cfg          GateConfig
	inferPurpose PurposeFunc
	logger       *zap.Logger

	questions []string
	learned   []extract.Element
}

// NewGate creates a novelty gate. inferPurpose may be nil when the
// caller has no way to fill in missing purposes (text-only deployments).
func NewGate(engine embedding.Engine, store *Store, cfg GateConfig, inferPurpose PurposeFunc, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		engine:       engine,
		store:        store,
		cfg:          cfg,
		inferPurpose: inferPurpose,
		logger:       logger,
	}
}

// Consider runs one element through the admission policy. The element's
// purpose may be filled in by inference; the (possibly updated) element
// is returned alongside the outcome. Transport failures at any step
// degrade toward the question path; Consider never returns an error.
func (g *Gate) Consider(ctx context.Context, el extract.Element, screenSummary string) (extract.Element, Outcome) {
	query := fmt.Sprintf("Element: %s.", el.Label)
	if el.Purpose != "" {
		query = fmt.Sprintf("Element: %s. Purpose: %s.", el.Label, el.Purpose)
	}

	if score := g.bestMatch(ctx, query); score >= g.cfg.MemoryThreshold {
		g.logger.Debug("element already known",
			zap.String("label", el.Label), zap.Float64("score", score))
		return el, OutcomeKnown
	}

	if el.Purpose == "" && g.inferPurpose != nil {
		el.Purpose = g.inferPurpose(ctx, el.Label)
	}

	if el.Purpose != "" && el.Confidence >= g.cfg.VisionThreshold {
		g.write(ctx, el, screenSummary)
		g.learned = append(g.learned, el)
		return el, OutcomeLearned
	}

	if len(g.questions) < g.cfg.MinQuestions {
		g.questions = append(g.questions, fmt.Sprintf("What does %q do?", el.Label))
		return el, OutcomeQuestioned
	}
	return el, OutcomeSkipped
}

// bestMatch embeds the query and returns the top similarity score, or 0
// when embedding or search fails (unknown screen is the safe default).
func (g *Gate) bestMatch(ctx context.Context, query string) float64 {
	vector, err := g.engine.Embed(ctx, query)
	if err != nil || len(vector) == 0 {
		g.logger.Warn("query embedding failed", zap.Error(err))
		return 0
	}
	hits, err := g.store.Search(ctx, vector, 1)
	if err != nil {
		g.logger.Warn("memory search failed", zap.Error(err))
		return 0
	}
	if len(hits) == 0 {
		return 0
	}
	return hits[0].Score
}

// write embeds the richer goal+label+purpose+screen string and upserts a
// record. The embedding dimensionality is validated against the engine's
// declared output before anything is written.
func (g *Gate) write(ctx context.Context, el extract.Element, screenSummary string) {
	rec := NewRecord(el, screenSummary, time.Now())
	text := fmt.Sprintf("Goal: %s. Element: %s. Purpose: %s. Screen: %s.",
		rec.Goal, el.Label, el.Purpose, screenSummary)

	vector, err := g.engine.Embed(ctx, text)
	if err != nil || len(vector) == 0 {
		g.logger.Warn("record embedding failed", zap.String("label", el.Label), zap.Error(err))
		return
	}
	if len(vector) != g.engine.Dimensions() {
		g.logger.Warn("record embedding has unexpected dimensionality, not writing",
			zap.Int("got", len(vector)), zap.Int("want", g.engine.Dimensions()))
		return
	}

	if err := g.store.Upsert(ctx, uuid.NewString(), vector, rec); err != nil {
		g.logger.Warn("memory write failed", zap.String("label", el.Label), zap.Error(err))
	}
}

// Questions returns the open questions queued so far, in first-seen order.
func (g *Gate) Questions() []string { return g.questions }

// Learned returns the elements admitted to the store so far.
func (g *Gate) Learned() []extract.Element { return g.learned }
