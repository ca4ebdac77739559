package comps

import (
	"context"
)

// Oracle is the LLM boundary for every dynamic judgment the pipeline
// makes. Production uses LLMOracle; tests use a scripted fake.
type Oracle interface {
	// Analyze extracts a structured profile from the target description.
	Analyze(ctx context.Context, target Target) (TargetProfile, error)

	// GenerateCandidates suggests publicly traded comparables.
	GenerateCandidates(ctx context.Context, target Target, profile TargetProfile, strategy SearchStrategy, maxCandidates int) ([]Candidate, error)

	// VerifyStatus checks the current trading status of one candidate.
	VerifyStatus(ctx context.Context, c Candidate) (VerificationRecord, error)

	// VerifyStatusBatch checks a batch of candidates in one call. The
	// result must match the batch in length and order.
	VerifyStatusBatch(ctx context.Context, batch []Candidate) ([]VerificationRecord, error)

	// AssessModelMatch scores business-model alignment 0.0-1.0.
	AssessModelMatch(ctx context.Context, targetModel BusinessModel, targetDescription, compDescription string) (ModelMatch, error)

	// CheckOperating distinguishes operating companies from holding
	// structures, SPACs, and other investment vehicles.
	CheckOperating(ctx context.Context, c Candidate) (OperatingCheck, error)

	// Normalize rewrites a description into a factual revenue-focused
	// paragraph suitable for comparison.
	Normalize(ctx context.Context, raw string, profile TargetProfile) (string, error)
}

// ModelMatch is the oracle's judgment of business-model alignment.
type ModelMatch struct {
	MatchScore      float64 `json:"match_score"`
	TargetModelType string  `json:"target_model_type,omitempty"`
	CompModelType   string  `json:"comp_model_type,omitempty"`
	Explanation     string  `json:"explanation,omitempty"`
}

// OperatingCheck is the oracle's judgment of entity type.
type OperatingCheck struct {
	IsOperating bool       `json:"is_operating"`
	EntityType  string     `json:"entity_type,omitempty"`
	Confidence  Confidence `json:"confidence,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
}
