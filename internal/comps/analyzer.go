package comps

import (
	"context"

	"go.uber.org/zap"
)

// AnalyzeTarget runs target analysis and degrades to a safe default
// profile on any failure. Analysis failure must never abort discovery.
func AnalyzeTarget(ctx context.Context, o Oracle, target Target, logger *zap.Logger) TargetProfile {
	if logger == nil {
		logger = zap.NewNop()
	}

	profile, err := o.Analyze(ctx, target)
	if err != nil {
		logger.Warn("target analysis failed, using default profile",
			zap.String("target", target.Name),
			zap.Error(err))
		return DefaultProfile()
	}

	if profile.BusinessModel == "" {
		profile.BusinessModel = ModelOther
	}
	if profile.CoreFocusAreas == nil {
		profile.CoreFocusAreas = []string{}
	}
	if profile.KeyDifferentiators == nil {
		profile.KeyDifferentiators = []string{}
	}

	logger.Info("target analyzed",
		zap.String("target", target.Name),
		zap.Float64("specialization", profile.SpecializationLevel),
		zap.String("business_model", string(profile.BusinessModel)),
		zap.Strings("focus_areas", profile.CoreFocusAreas))

	return profile
}
