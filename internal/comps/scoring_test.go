package comps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoringFixtures() (*fakeOracle, *fakeEngine, TargetProfile, []float32) {
	oracle := &fakeOracle{
		modelMatchFn: func(string) (ModelMatch, error) {
			return ModelMatch{MatchScore: 0.8, Explanation: "both sell vertical software"}, nil
		},
	}
	engine := &fakeEngine{
		embedFn: func(string) ([]float32, error) {
			return []float32{1, 0, 0}, nil
		},
	}
	profile := TargetProfile{
		SpecializationLevel: 0.5,
		CoreFocusAreas:      []string{"software", "healthcare"},
		BusinessModel:       ModelSoftwareVendor,
	}
	targetEmbedding := []float32{1, 0, 0}
	return oracle, engine, profile, targetEmbedding
}

func TestScorer_Deterministic(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	s := NewScorer(oracle, engine, nil)

	mk := func() Comparable {
		c := Comparable{Candidate: makeCandidate(1)}
		c.NormalizedDescription = "Sells healthcare software to hospitals"
		return c
	}

	a, b := mk(), mk()
	s.Score(context.Background(), &a, profile, emb, "target desc")
	s.Score(context.Background(), &b, profile, emb, "target desc")

	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Breakdown, b.Breakdown)
}

func TestScorer_Components(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	s := NewScorer(oracle, engine, nil)

	c := Comparable{Candidate: makeCandidate(1)}
	c.NormalizedDescription = "Sells healthcare software to hospitals"
	s.Score(context.Background(), &c, profile, emb, "target desc")

	// base 1.0 + semantic 1.0*(3.0+0.5*2.0)=4.0 + focus 1.0*1.5 + model 0.8*0.75=0.6
	assert.InDelta(t, 7.1, c.Score, 1e-9)
	require.Contains(t, c.Breakdown, "semantic_similarity")
	assert.Equal(t, "1.000 (weighted 4.0x)", c.Breakdown["semantic_similarity"])
	assert.Equal(t, "1.00", c.Breakdown["focus_overlap"])
}

func TestScorer_CaveatPenaltyExactlyHalf(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	s := NewScorer(oracle, engine, nil)

	plain := Comparable{Candidate: makeCandidate(1)}
	plain.NormalizedDescription = "Sells healthcare software"

	flagged := plain
	flagged.Caveat = "Material change: sold services unit"

	s.Score(context.Background(), &plain, profile, emb, "d")
	s.Score(context.Background(), &flagged, profile, emb, "d")

	assert.InDelta(t, 0.5, plain.Score-flagged.Score, 1e-9)
	assert.Contains(t, flagged.Breakdown, "caveat")
}

func TestScorer_NeedsVerificationPenalty(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	s := NewScorer(oracle, engine, nil)

	plain := Comparable{Candidate: makeCandidate(1)}
	plain.NormalizedDescription = "Sells healthcare software"

	flagged := plain
	flagged.NeedsVerification = true

	s.Score(context.Background(), &plain, profile, emb, "d")
	s.Score(context.Background(), &flagged, profile, emb, "d")

	assert.InDelta(t, 0.25, plain.Score-flagged.Score, 1e-9)
}

func TestScorer_ModelAssessmentFailureNeutral(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	oracle.modelMatchFn = func(string) (ModelMatch, error) {
		return ModelMatch{}, assert.AnError
	}
	s := NewScorer(oracle, engine, nil)

	c := Comparable{Candidate: makeCandidate(1)}
	c.NormalizedDescription = "Sells healthcare software"
	s.Score(context.Background(), &c, profile, emb, "d")

	// Neutral 0.5 contribution instead of an abort.
	assert.Contains(t, c.Breakdown["business_model"], "0.50")
}

func TestScorer_EmbeddingFailureDegrades(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	engine.embedFn = func(string) ([]float32, error) { return nil, assert.AnError }
	s := NewScorer(oracle, engine, nil)

	c := Comparable{Candidate: makeCandidate(1)}
	c.NormalizedDescription = "Sells healthcare software"
	s.Score(context.Background(), &c, profile, emb, "d")

	assert.Equal(t, "error", c.Breakdown["semantic_similarity"])
	// base + focus + model still contribute.
	assert.Greater(t, c.Score, 0.0)
}

func TestAdvancedScorer_BoundedAndDeterministic(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	s := NewAdvancedScorer(oracle, engine, nil)

	mk := func() Comparable {
		c := Comparable{Candidate: makeCandidate(1)}
		c.NormalizedDescription = "Sells healthcare software to hospitals and enterprise clients"
		return c
	}

	a, b := mk(), mk()
	s.Score(context.Background(), &a, profile, emb, "enterprise healthcare software target")
	s.Score(context.Background(), &b, profile, emb, "enterprise healthcare software target")

	assert.Equal(t, a.Score, b.Score)
	assert.LessOrEqual(t, a.Score, 10.0)
	assert.Greater(t, a.Score, 0.0)
	assert.Contains(t, a.Breakdown, "semantic")
	assert.Contains(t, a.Breakdown, "focus_precision")
}

func TestAdvancedScorer_ScaleOnlyWithFinancials(t *testing.T) {
	oracle, engine, profile, emb := scoringFixtures()
	s := NewAdvancedScorer(oracle, engine, nil)

	without := Comparable{Candidate: makeCandidate(1)}
	without.NormalizedDescription = "Sells software"

	with := without
	with.Financials = &Financials{MarketCap: 5e9}

	s.Score(context.Background(), &without, profile, emb, "d")
	s.Score(context.Background(), &with, profile, emb, "d")

	assert.NotContains(t, without.Breakdown, "scale")
	require.Contains(t, with.Breakdown, "scale")
	assert.Contains(t, with.Breakdown["scale"], "mid_cap")
}

func TestCustomerOverlap(t *testing.T) {
	score, matched := customerOverlap(
		"enterprise and government healthcare buyers",
		"serves enterprise healthcare providers and government agencies")
	assert.InDelta(t, 0.75, score, 1e-9)
	assert.ElementsMatch(t, []string{"enterprise", "government", "healthcare"}, matched)

	// Capped at 1.0.
	score, _ = customerOverlap(
		"enterprise government healthcare financial retail b2b",
		"enterprise government healthcare financial retail b2b")
	assert.Equal(t, 1.0, score)
}

func TestFocusPrecision(t *testing.T) {
	score, exact, partial := focusPrecision(
		"provides revenue cycle software for hospital systems",
		[]string{"revenue cycle", "hospital billing", "telehealth"})
	// "revenue cycle" exact, "hospital billing" partial via "hospital".
	assert.Equal(t, 1, exact)
	assert.Equal(t, 1, partial)
	assert.InDelta(t, 1.0/3.0+0.5/3.0, score, 1e-9)

	score, _, _ = focusPrecision("anything", nil)
	assert.Equal(t, 0.0, score)
}

func TestCapStage(t *testing.T) {
	assert.Equal(t, "mega_cap", capStage(60e9))
	assert.Equal(t, "large_cap", capStage(20e9))
	assert.Equal(t, "mid_cap", capStage(3e9))
	assert.Equal(t, "small_cap", capStage(500e6))
	assert.Equal(t, "micro_cap", capStage(50e6))
}
