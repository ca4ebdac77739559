package comps

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Normalizer rewrites company descriptions into a standardized,
// revenue-focused form for comparison. Failure returns the raw text
// unchanged so scoring is never blocked.
type Normalizer struct {
	oracle Oracle
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer over the given oracle.
func NewNormalizer(o Oracle, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{oracle: o, logger: logger}
}

// Normalize rewrites raw text, falling back to it on any failure.
func (n *Normalizer) Normalize(ctx context.Context, raw string, profile TargetProfile) string {
	out, err := n.oracle.Normalize(ctx, raw, profile)
	if err != nil || strings.TrimSpace(out) == "" {
		n.logger.Warn("normalization failed, keeping raw description", zap.Error(err))
		return raw
	}
	return out
}
