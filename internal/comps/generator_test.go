package comps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyFor(t *testing.T) {
	specialized := TargetProfile{SpecializationLevel: 0.85}
	diversified := TargetProfile{SpecializationLevel: 0.4}

	assert.Equal(t, ModeStrict, StrategyFor(specialized, 1, false).Mode)
	assert.Equal(t, ModeModerate, StrategyFor(diversified, 1, false).Mode)
	// Broadening overrides specialization.
	assert.Equal(t, ModeBroader, StrategyFor(specialized, 2, true).Mode)
}

func TestGenerator_RetriesWithBackoff(t *testing.T) {
	calls := 0
	oracle := &fakeOracle{
		generateFn: func(SearchStrategy, int) ([]Candidate, error) {
			calls++
			if calls < 3 {
				return nil, assert.AnError
			}
			return []Candidate{makeCandidate(1)}, nil
		},
	}

	g := NewGenerator(oracle, 25, nil)
	sleeps := &sleepRecorder{}
	g.sleep = sleeps.sleep

	got := g.Generate(context.Background(), Target{Name: "Acme"}, DefaultProfile(), 1, false)
	require.Len(t, got, 1)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps.slept)
}

func TestGenerator_AllRetriesFailReturnsEmpty(t *testing.T) {
	oracle := &fakeOracle{
		generateFn: func(SearchStrategy, int) ([]Candidate, error) {
			return nil, assert.AnError
		},
	}

	g := NewGenerator(oracle, 25, nil)
	sleeps := &sleepRecorder{}
	g.sleep = sleeps.sleep

	got := g.Generate(context.Background(), Target{Name: "Acme"}, DefaultProfile(), 1, false)
	assert.Empty(t, got)
	assert.Equal(t, 3, oracle.generateCalls)
	// No sleep after the final failed try.
	assert.Len(t, sleeps.slept, 2)
}

func TestGenerator_ExcludesTargetName(t *testing.T) {
	oracle := &fakeOracle{
		generateFn: func(SearchStrategy, int) ([]Candidate, error) {
			self := makeCandidate(9)
			self.Name = "ACME Holdings Group"
			return []Candidate{makeCandidate(1), self, makeCandidate(2)}, nil
		},
	}

	g := NewGenerator(oracle, 25, nil)
	got := g.Generate(context.Background(), Target{Name: "acme"}, DefaultProfile(), 1, false)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.NotContains(t, c.Name, "ACME")
	}
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, ExponentialBackoff(1))
	assert.Equal(t, 4*time.Second, ExponentialBackoff(2))
	assert.Equal(t, 8*time.Second, ExponentialBackoff(3))
}
