package comps

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SearchMode controls how aggressively generation casts its net.
type SearchMode string

const (
	// ModeStrict requires >50% revenue concentration in focus areas.
	ModeStrict SearchMode = "strict"
	// ModeModerate requires >30% exposure.
	ModeModerate SearchMode = "moderate"
	// ModeBroader relaxes to 20-40% and allows adjacent industries.
	// Used when earlier attempts under-produced valid comparables.
	ModeBroader SearchMode = "broader"
)

// SearchStrategy is the generation directive derived from the profile.
type SearchStrategy struct {
	Mode    SearchMode
	Attempt int
}

// StrategyFor derives the search strategy from the target profile.
// Broadening overrides specialization once prior attempts fell short.
func StrategyFor(profile TargetProfile, attempt int, broader bool) SearchStrategy {
	mode := ModeModerate
	if broader {
		mode = ModeBroader
	} else if profile.SpecializationLevel >= 0.7 {
		mode = ModeStrict
	}
	return SearchStrategy{Mode: mode, Attempt: attempt}
}

// BackoffPolicy maps a retry attempt (1-based) to a delay.
type BackoffPolicy func(attempt int) time.Duration

// ExponentialBackoff doubles the delay per attempt: 2s, 4s, 8s.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// Generator produces candidate comparables with bounded retry.
type Generator struct {
	oracle        Oracle
	maxCandidates int
	maxRetries    int
	backoff       BackoffPolicy
	sleep         func(time.Duration)
	logger        *zap.Logger
}

// NewGenerator creates a Generator with the default retry policy.
func NewGenerator(o Oracle, maxCandidates int, logger *zap.Logger) *Generator {
	if maxCandidates <= 0 {
		maxCandidates = 25
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		oracle:        o,
		maxCandidates: maxCandidates,
		maxRetries:    3,
		backoff:       ExponentialBackoff,
		sleep:         time.Sleep,
		logger:        logger,
	}
}

// Generate produces candidates for one pipeline attempt. Oracle
// failures are retried up to maxRetries with exponential backoff; a
// fully failed attempt returns an empty list, never an error.
func (g *Generator) Generate(ctx context.Context, target Target, profile TargetProfile, attempt int, broader bool) []Candidate {
	strategy := StrategyFor(profile, attempt, broader)

	for try := 1; try <= g.maxRetries; try++ {
		candidates, err := g.oracle.GenerateCandidates(ctx, target, profile, strategy, g.maxCandidates)
		if err == nil {
			filtered := excludeTargetName(candidates, target.Name)
			g.logger.Info("candidates generated",
				zap.Int("attempt", attempt),
				zap.String("mode", string(strategy.Mode)),
				zap.Int("count", len(filtered)))
			return filtered
		}

		g.logger.Warn("candidate generation failed",
			zap.Int("attempt", attempt),
			zap.Int("try", try),
			zap.Error(err))

		if try < g.maxRetries {
			g.sleep(g.backoff(try))
		}
	}
	return nil
}

// excludeTargetName drops candidates whose name contains the target's
// name, case-insensitive. Safety net against the oracle suggesting the
// target itself.
func excludeTargetName(candidates []Candidate, targetName string) []Candidate {
	needle := strings.ToLower(strings.TrimSpace(targetName))
	if needle == "" {
		return candidates
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			continue
		}
		out = append(out, c)
	}
	return out
}
