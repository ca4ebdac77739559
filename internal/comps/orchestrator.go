package comps

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"compiq/internal/embedding"
)

// Enricher attaches financial data to final comparables. Implemented by
// internal/enrich; enrichment failures are non-fatal.
type Enricher interface {
	EnrichBatch(ctx context.Context, comps []Comparable) ([]Comparable, error)
}

// Options bounds one comparable search.
type Options struct {
	MinRequired   int
	MaxAllowed    int
	MaxAttempts   int
	MaxCandidates int

	// Verification batching.
	BatchSize  int
	BatchDelay time.Duration

	// DeepFilter enables the LLM-based operating check after the
	// keyword screen.
	DeepFilter bool
}

// DefaultOptions returns the standard search bounds.
func DefaultOptions() Options {
	return Options{
		MinRequired:   3,
		MaxAllowed:    10,
		MaxAttempts:   3,
		MaxCandidates: 25,
		BatchSize:     5,
		BatchDelay:    500 * time.Millisecond,
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.MinRequired <= 0 {
		o.MinRequired = d.MinRequired
	}
	if o.MaxAllowed <= 0 {
		o.MaxAllowed = d.MaxAllowed
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = d.MaxCandidates
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = d.BatchDelay
	}
}

// Pipeline holds the per-search state: the oracle, the verification
// cache (inside the validator), the embedding engine, and the scorer.
// Construct a fresh Pipeline per search to force re-verification.
type Pipeline struct {
	oracle     Oracle
	engine     embedding.Engine
	scorer     CompScorer
	generator  *Generator
	filter     *EntityFilter
	validator  *StatusValidator
	normalizer *Normalizer
	enricher   Enricher
	opts       Options
	sleep      func(time.Duration)
	logger     *zap.Logger
}

// NewPipeline wires the pipeline components. A nil logger gets a no-op.
func NewPipeline(o Oracle, engine embedding.Engine, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()

	validator := NewStatusValidator(o, logger)
	validator.batchSize = opts.BatchSize
	validator.batchDelay = opts.BatchDelay

	return &Pipeline{
		oracle:     o,
		engine:     engine,
		scorer:     NewScorer(o, engine, logger),
		generator:  NewGenerator(o, opts.MaxCandidates, logger),
		filter:     NewEntityFilter(o, opts.DeepFilter, logger),
		validator:  validator,
		normalizer: NewNormalizer(o, logger),
		opts:       opts,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// SetScorer swaps the scoring engine, e.g. for the advanced scorer.
func (p *Pipeline) SetScorer(s CompScorer) {
	if s != nil {
		p.scorer = s
	}
}

// SetEnricher attaches a financial enricher applied to the final set.
func (p *Pipeline) SetEnricher(e Enricher) {
	p.enricher = e
}

// FindComparables runs the full search. It never returns an error:
// after max attempts the best partial result is returned, and callers
// check the returned count against their own minimum.
func (p *Pipeline) FindComparables(ctx context.Context, target Target) *SearchResult {
	start := time.Now()
	p.logger.Info("starting comparable search",
		zap.String("target", target.Name),
		zap.Int("min_required", p.opts.MinRequired),
		zap.Int("max_attempts", p.opts.MaxAttempts))

	// Analyze and embed the target exactly once.
	profile := AnalyzeTarget(ctx, p.oracle, target, p.logger)

	targetNorm := p.normalizer.Normalize(ctx, target.Description, profile)
	targetEmbedding, err := p.engine.Embed(ctx, targetNorm)
	if err != nil {
		p.logger.Warn("target embedding failed, semantic scoring degraded", zap.Error(err))
		targetEmbedding = nil
	}

	var best []Comparable
	var allRejected []Rejection
	attempts := 0

	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		attempts = attempt
		broader := attempt > 1 && len(best) < p.opts.MinRequired
		if broader {
			p.logger.Info("switching to broader search", zap.Int("attempt", attempt))
		}

		candidates := p.generator.Generate(ctx, target, profile, attempt, broader)
		if len(candidates) == 0 {
			p.logger.Warn("no candidates generated", zap.Int("attempt", attempt))
			if attempt < p.opts.MaxAttempts {
				p.sleep(2 * time.Second)
			}
			continue
		}

		passed, rejected := p.filter.Screen(ctx, candidates)
		allRejected = append(allRejected, rejected...)

		valid, verifyRejected := p.validator.Validate(ctx, passed)
		allRejected = append(allRejected, verifyRejected...)

		valid = dedupeByKey(valid)

		for i := range valid {
			if valid[i].NormalizedDescription == "" {
				raw := valid[i].BusinessActivity + " " + valid[i].CustomerSegment
				valid[i].NormalizedDescription = p.normalizer.Normalize(ctx, raw, profile)
			}
			p.scorer.Score(ctx, &valid[i], profile, targetEmbedding, target.Description)
		}

		sort.SliceStable(valid, func(a, b int) bool {
			return valid[a].Score > valid[b].Score
		})

		selected := selectByThreshold(valid, profile.SpecializationLevel, p.opts.MinRequired, p.opts.MaxAllowed)
		p.logger.Info("attempt complete",
			zap.Int("attempt", attempt),
			zap.Int("scored", len(valid)),
			zap.Int("selected", len(selected)))

		if len(selected) >= p.opts.MinRequired {
			best = selected
			break
		}
		if len(selected) > len(best) {
			best = selected
		}
		if attempt < p.opts.MaxAttempts {
			p.sleep(2 * time.Second)
		}
	}

	if p.enricher != nil && len(best) > 0 {
		enriched, err := p.enricher.EnrichBatch(ctx, best)
		if err != nil {
			p.logger.Warn("enrichment failed, returning unenriched results", zap.Error(err))
		} else {
			best = enriched
		}
	}

	p.logger.Info("search complete",
		zap.String("target", target.Name),
		zap.Int("comparables", len(best)),
		zap.Int("rejected", len(allRejected)),
		zap.Duration("elapsed", time.Since(start)))

	return &SearchResult{
		Comparables: best,
		Metadata: SearchMetadata{
			SearchID:         uuid.NewString(),
			TargetName:       target.Name,
			Timestamp:        time.Now(),
			Profile:          profile,
			Attempts:         attempts,
			Rejected:         allRejected,
			ValidationMethod: "dynamic_llm",
		},
	}
}

// thresholdLadder returns the score cutoffs tried strictest-first.
func thresholdLadder(specialization float64) []float64 {
	if specialization >= 0.7 {
		return []float64{5.0, 4.0, 3.0}
	}
	return []float64{4.0, 3.0, 2.0}
}

// selectByThreshold walks the ladder and returns the first cutoff that
// yields at least minRequired comparables, truncated to maxAllowed.
// If none qualifies, the best-scoring subset is returned. Input must be
// sorted descending by score.
func selectByThreshold(sorted []Comparable, specialization float64, minRequired, maxAllowed int) []Comparable {
	for _, t := range thresholdLadder(specialization) {
		n := 0
		for _, c := range sorted {
			if c.Score >= t {
				n++
			}
		}
		if n >= minRequired {
			return clip(sorted[:n], maxAllowed)
		}
	}
	return clip(sorted, maxAllowed)
}

func clip(comps []Comparable, maxAllowed int) []Comparable {
	if len(comps) > maxAllowed {
		return comps[:maxAllowed]
	}
	return comps
}

// dedupeByKey keeps the first occurrence per ticker+exchange within one
// attempt.
func dedupeByKey(comps []Comparable) []Comparable {
	seen := make(map[string]bool, len(comps))
	out := comps[:0]
	for _, c := range comps {
		key := verificationKey(c.Candidate)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
