package comps

import (
	"context"
	"fmt"
	"time"
)

// fakeOracle is a scripted Oracle. Unset function fields fall back to
// permissive defaults so tests only script what they assert on.
type fakeOracle struct {
	analyzeFn        func(target Target) (TargetProfile, error)
	generateFn       func(strategy SearchStrategy, maxCandidates int) ([]Candidate, error)
	verifyFn         func(c Candidate) (VerificationRecord, error)
	verifyBatchFn    func(batch []Candidate) ([]VerificationRecord, error)
	modelMatchFn     func(compDescription string) (ModelMatch, error)
	checkOperatingFn func(c Candidate) (OperatingCheck, error)
	normalizeFn      func(raw string) (string, error)

	generateCalls    int
	verifyCalls      int
	verifyBatchCalls int
	modelMatchCalls  int
}

func (f *fakeOracle) Analyze(_ context.Context, target Target) (TargetProfile, error) {
	if f.analyzeFn != nil {
		return f.analyzeFn(target)
	}
	return DefaultProfile(), nil
}

func (f *fakeOracle) GenerateCandidates(_ context.Context, _ Target, _ TargetProfile, strategy SearchStrategy, maxCandidates int) ([]Candidate, error) {
	f.generateCalls++
	if f.generateFn != nil {
		return f.generateFn(strategy, maxCandidates)
	}
	return nil, nil
}

func (f *fakeOracle) VerifyStatus(_ context.Context, c Candidate) (VerificationRecord, error) {
	f.verifyCalls++
	if f.verifyFn != nil {
		return f.verifyFn(c)
	}
	return activeRecord(c), nil
}

func (f *fakeOracle) VerifyStatusBatch(_ context.Context, batch []Candidate) ([]VerificationRecord, error) {
	f.verifyBatchCalls++
	if f.verifyBatchFn != nil {
		return f.verifyBatchFn(batch)
	}
	recs := make([]VerificationRecord, len(batch))
	for i, c := range batch {
		recs[i] = activeRecord(c)
	}
	return recs, nil
}

func (f *fakeOracle) AssessModelMatch(_ context.Context, _ BusinessModel, _, compDescription string) (ModelMatch, error) {
	f.modelMatchCalls++
	if f.modelMatchFn != nil {
		return f.modelMatchFn(compDescription)
	}
	return ModelMatch{MatchScore: 0.8, Explanation: "similar model"}, nil
}

func (f *fakeOracle) CheckOperating(_ context.Context, c Candidate) (OperatingCheck, error) {
	if f.checkOperatingFn != nil {
		return f.checkOperatingFn(c)
	}
	return OperatingCheck{IsOperating: true, Confidence: ConfidenceHigh}, nil
}

func (f *fakeOracle) Normalize(_ context.Context, raw string, _ TargetProfile) (string, error) {
	if f.normalizeFn != nil {
		return f.normalizeFn(raw)
	}
	return raw, nil
}

// fakeEngine is a deterministic embedding engine.
type fakeEngine struct {
	embedFn func(text string) ([]float32, error)
}

func (f *fakeEngine) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(text)
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return 3 }
func (f *fakeEngine) Name() string    { return "fake" }

// fakeScorer assigns scores from a ticker map, default 1.0.
type fakeScorer struct {
	byTicker map[string]float64
}

func (f *fakeScorer) Score(_ context.Context, comp *Comparable, _ TargetProfile, _ []float32, _ string) {
	score, ok := f.byTicker[comp.Ticker]
	if !ok {
		score = 1.0
	}
	comp.Score = score
	comp.Breakdown = map[string]string{"scripted": fmt.Sprintf("%.2f", score)}
}

// sleepRecorder captures sleep calls instead of blocking.
type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.slept = append(r.slept, d)
}

func boolPtr(b bool) *bool { return &b }

func activeRecord(c Candidate) VerificationRecord {
	return VerificationRecord{
		Ticker:           c.Ticker,
		Name:             c.Name,
		Exchange:         c.Exchange,
		IsPubliclyTraded: boolPtr(true),
		Status:           StatusActive,
		Confidence:       ConfidenceHigh,
	}
}

func makeCandidate(i int) Candidate {
	return Candidate{
		Name:             fmt.Sprintf("Company %d Inc.", i),
		URL:              fmt.Sprintf("https://company%d.example.com", i),
		Exchange:         "NASDAQ",
		Ticker:           fmt.Sprintf("CMP%d", i),
		BusinessActivity: fmt.Sprintf("Provides specialized software for segment %d", i),
		CustomerSegment:  "enterprise healthcare",
	}
}
