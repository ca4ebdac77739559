package comps

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"compiq/internal/embedding"
)

// AdvancedScorer is the multi-dimensional scoring engine. It combines
// semantic similarity, business-model depth, customer-segment overlap,
// scale matching (when financials are present), and focus-area
// precision into a weighted sum normalized onto a 0-10 scale, then
// applies the same caveat/needs-verification penalties as the standard
// scorer. Drop-in replacement for Scorer via CompScorer.
type AdvancedScorer struct {
	oracle Oracle
	engine embedding.Engine
	logger *zap.Logger
}

// NewAdvancedScorer creates the advanced scorer.
func NewAdvancedScorer(o Oracle, engine embedding.Engine, logger *zap.Logger) *AdvancedScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvancedScorer{oracle: o, engine: engine, logger: logger}
}

// customerSegmentKeywords are the segment labels counted toward
// customer-overlap. Each shared segment is worth 0.25, capped at 1.0.
var customerSegmentKeywords = []string{
	"enterprise", "government", "healthcare", "financial",
	"retail", "manufacturing", "education", "startups",
	"smb", "mid-market", "consumers", "b2b", "b2c",
}

// Score computes the normalized multi-dimensional score.
func (s *AdvancedScorer) Score(ctx context.Context, comp *Comparable, profile TargetProfile, targetEmbedding []float32, targetDescription string) {
	breakdown := make(map[string]string)

	scores := map[string]float64{"base": 1.0}
	weights := map[string]float64{"base": 1.0}
	breakdown["base"] = "1.00"

	// 1. Semantic similarity with non-linear rescaling
	semantic, raw := s.semanticScore(ctx, comp, targetEmbedding)
	scores["semantic"] = semantic
	weights["semantic"] = 3.5
	breakdown["semantic"] = fmt.Sprintf("%.2f (raw similarity %.3f)", semantic, raw)

	// 2. Business model alignment
	text := comp.NormalizedDescription
	if text == "" {
		text = comp.BusinessActivity
	}
	modelScore := 0.5
	modelNote := "assessment unavailable, neutral"
	if match, err := s.oracle.AssessModelMatch(ctx, profile.BusinessModel, targetDescription, text); err == nil {
		modelScore = match.MatchScore
		if match.Explanation != "" {
			modelNote = match.Explanation
		}
	} else {
		s.logger.Warn("business model assessment failed",
			zap.String("ticker", comp.Ticker),
			zap.Error(err))
	}
	scores["business_model"] = modelScore
	weights["business_model"] = 2.0
	breakdown["business_model"] = fmt.Sprintf("%.2f (%s)", modelScore, truncate(modelNote, 50))

	// 3. Customer segment overlap
	overlap, matched := customerOverlap(comp.CustomerSegment, targetDescription)
	scores["customer_overlap"] = overlap
	weights["customer_overlap"] = 1.5
	breakdown["customer_overlap"] = fmt.Sprintf("%.2f (%s)", overlap, strings.Join(matched, ", "))

	// 4. Scale matching, only when financial data is attached
	if comp.Financials != nil && comp.Financials.MarketCap > 0 {
		scores["scale"] = 0.7 // neutral; scale matching is approximate
		weights["scale"] = 1.0
		breakdown["scale"] = fmt.Sprintf("0.70 (%s)", capStage(comp.Financials.MarketCap))
	}

	// 5. Focus area precision with partial word matches
	precision, exact, partial := focusPrecision(text, profile.CoreFocusAreas)
	scores["focus_precision"] = precision
	weights["focus_precision"] = 1.8
	breakdown["focus_precision"] = fmt.Sprintf("%.2f (%d exact, %d partial)", precision, exact, partial)

	var total, maxPossible float64
	for k, v := range scores {
		total += v * weights[k]
		maxPossible += weights[k]
	}
	normalized := total / maxPossible * 10

	if comp.Caveat != "" {
		normalized -= 0.5
		breakdown["caveat"] = comp.Caveat
	}
	if comp.NeedsVerification {
		normalized -= 0.25
		breakdown["needs_verification"] = "true"
	}

	comp.Score = round2(normalized)
	comp.Breakdown = breakdown
}

// semanticScore embeds the comparable's description and rescales the
// cosine similarity non-linearly: very high similarity is rewarded,
// low similarity penalized more. Failure degrades to neutral 0.5.
func (s *AdvancedScorer) semanticScore(ctx context.Context, comp *Comparable, targetEmbedding []float32) (score, raw float64) {
	text := comp.NormalizedDescription
	if text == "" {
		text = comp.BusinessActivity
	}

	emb, err := s.engine.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("semantic similarity failed",
			zap.String("ticker", comp.Ticker),
			zap.Error(err))
		return 0.5, 0.5
	}

	sim, err := embedding.CosineSimilarity(targetEmbedding, emb)
	if err != nil {
		return 0.5, 0.5
	}

	switch {
	case sim > 0.85:
		score = 1.0
	case sim > 0.75:
		score = 0.85 + (sim-0.75)*1.5
	case sim > 0.60:
		score = 0.65 + (sim-0.60)*1.3
	default:
		score = sim
	}
	return min(score, 1.0), sim
}

// customerOverlap counts shared customer-segment keywords between the
// comparable's segment description and the target description.
func customerOverlap(compSegment, targetDescription string) (float64, []string) {
	segment := strings.ToLower(compSegment)
	target := strings.ToLower(targetDescription)

	var matched []string
	for _, kw := range customerSegmentKeywords {
		if strings.Contains(segment, kw) && strings.Contains(target, kw) {
			matched = append(matched, kw)
		}
	}
	return min(float64(len(matched))*0.25, 1.0), matched
}

// capStage labels the comparable's market-cap band.
func capStage(marketCap float64) string {
	switch {
	case marketCap > 50e9:
		return "mega_cap"
	case marketCap > 10e9:
		return "large_cap"
	case marketCap > 2e9:
		return "mid_cap"
	case marketCap > 300e6:
		return "small_cap"
	default:
		return "micro_cap"
	}
}

// focusPrecision measures how precisely the description matches the
// focus areas: full credit for exact phrase matches, half credit when
// only individual words of an area appear.
func focusPrecision(description string, focusAreas []string) (score float64, exact, partial int) {
	if len(focusAreas) == 0 {
		return 0, 0, 0
	}
	desc := strings.ToLower(description)

	for _, area := range focusAreas {
		areaLower := strings.ToLower(area)
		if strings.Contains(desc, areaLower) {
			exact++
			continue
		}
		for _, word := range strings.Fields(areaLower) {
			if strings.Contains(desc, word) {
				partial++
				break
			}
		}
	}

	n := float64(len(focusAreas))
	total := float64(exact)/n + float64(partial)/n*0.5
	return min(total, 1.0), exact, partial
}
