package comps

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"compiq/internal/embedding"
)

// CompScorer scores a comparable in place, filling Score and Breakdown.
// Implementations must be deterministic given identical oracle outputs.
type CompScorer interface {
	Score(ctx context.Context, comp *Comparable, profile TargetProfile, targetEmbedding []float32, targetDescription string)
}

// Scorer is the standard scoring engine. From a base of 1.0 it adds
// semantic similarity (weight 3.0 + 2.0*specialization), focus-area
// overlap (1.5), and business-model alignment (0.75), then subtracts
// 0.5 for a caveat and 0.25 for a needs-verification flag.
type Scorer struct {
	oracle Oracle
	engine embedding.Engine
	logger *zap.Logger
}

// NewScorer creates the standard scorer.
func NewScorer(o Oracle, engine embedding.Engine, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{oracle: o, engine: engine, logger: logger}
}

// Score computes the comparable's score and breakdown.
func (s *Scorer) Score(ctx context.Context, comp *Comparable, profile TargetProfile, targetEmbedding []float32, targetDescription string) {
	score := 1.0 // base for a valid public operating company
	breakdown := map[string]string{"valid_public_operating": "1.0"}

	text := comp.NormalizedDescription
	if text == "" {
		text = comp.BusinessActivity
	}

	// Semantic similarity
	sim, err := s.similarity(ctx, text, targetEmbedding)
	if err != nil {
		s.logger.Warn("semantic similarity failed",
			zap.String("ticker", comp.Ticker),
			zap.Error(err))
		breakdown["semantic_similarity"] = "error"
	} else {
		weight := 3.0 + profile.SpecializationLevel*2.0
		score += sim * weight
		breakdown["semantic_similarity"] = fmt.Sprintf("%.3f (weighted %.1fx)", sim, weight)
	}

	// Focus area overlap
	if len(profile.CoreFocusAreas) > 0 {
		textLower := strings.ToLower(text)
		matches := 0
		for _, area := range profile.CoreFocusAreas {
			if strings.Contains(textLower, strings.ToLower(area)) {
				matches++
			}
		}
		focusScore := float64(matches) / float64(len(profile.CoreFocusAreas))
		score += focusScore * 1.5
		breakdown["focus_overlap"] = fmt.Sprintf("%.2f", focusScore)
	}

	// Business model match, neutral 0.5 on failure
	matchScore := 0.5
	explanation := "Could not assess - defaulting to neutral"
	if match, err := s.oracle.AssessModelMatch(ctx, profile.BusinessModel, targetDescription, text); err == nil {
		matchScore = match.MatchScore
		if match.Explanation != "" {
			explanation = match.Explanation
		}
	} else {
		s.logger.Warn("business model assessment failed",
			zap.String("ticker", comp.Ticker),
			zap.Error(err))
	}
	score += matchScore * 0.75
	breakdown["business_model"] = fmt.Sprintf("%.2f (%s)", matchScore, truncate(explanation, 50))

	// Penalties
	if comp.Caveat != "" {
		score -= 0.5
		breakdown["caveat"] = comp.Caveat
	}
	if comp.NeedsVerification {
		score -= 0.25
		breakdown["needs_verification"] = "true"
	}

	comp.Score = round3(score)
	comp.Breakdown = breakdown
}

func (s *Scorer) similarity(ctx context.Context, text string, targetEmbedding []float32) (float64, error) {
	emb, err := s.engine.Embed(ctx, text)
	if err != nil {
		return 0, err
	}
	return embedding.CosineSimilarity(targetEmbedding, emb)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
