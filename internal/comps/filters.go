package comps

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// placeholderValues are strings the oracle uses when it has no real
// data for a field.
var placeholderValues = map[string]struct{}{
	"na":      {},
	"n/a":     {},
	"none":    {},
	"unknown": {},
}

// ValidCompanyData reports whether a candidate carries all required
// fields with real values.
func ValidCompanyData(c Candidate) bool {
	required := []string{c.Name, c.URL, c.Exchange, c.Ticker, c.BusinessActivity}
	for _, val := range required {
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return false
		}
		if _, placeholder := placeholderValues[strings.ToLower(trimmed)]; placeholder {
			return false
		}
	}
	return true
}

// structuralNonOperating lists entity-type signals that are universally
// non-operating regardless of industry. These are legal/structural
// classifications, not industry-specific hardcoding.
var structuralNonOperating = []struct {
	signal string
	reason string
}{
	{"holding company", "Holding company structure"},
	{"investment vehicle", "Investment vehicle"},
	{"spac", "Special Purpose Acquisition Company"},
	{"shell company", "Shell company"},
	{"investment trust", "Investment trust structure"},
	{"blank check", "Blank check company"},
	{"special purpose acquisition", "SPAC structure"},
}

// CheckOperatingBasic is a cheap heuristic screen for obviously
// non-operating entities. Returns (isLikelyOperating, reasonIfNot).
func CheckOperatingBasic(c Candidate) (bool, string) {
	text := strings.ToLower(c.BusinessActivity + " " + c.Name)
	for _, s := range structuralNonOperating {
		if strings.Contains(text, s.signal) {
			return false, s.reason
		}
	}
	return true, ""
}

// EntityFilter runs the pre-verification screens: data completeness and
// entity-type checks. Both run before any per-candidate oracle spend.
type EntityFilter struct {
	oracle Oracle
	deep   bool
	logger *zap.Logger
}

// NewEntityFilter creates the filter. When deep is true, candidates
// that pass the keyword screen get a second LLM-based operating check.
func NewEntityFilter(o Oracle, deep bool, logger *zap.Logger) *EntityFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntityFilter{oracle: o, deep: deep, logger: logger}
}

// Screen partitions candidates into those worth verifying and
// deterministic rejections.
func (f *EntityFilter) Screen(ctx context.Context, candidates []Candidate) ([]Candidate, []Rejection) {
	passed := make([]Candidate, 0, len(candidates))
	var rejected []Rejection

	for _, c := range candidates {
		if !ValidCompanyData(c) {
			rejected = append(rejected, Rejection{
				Candidate: c,
				Status:    StatusDataInvalid,
				Reason:    "Incomplete data",
			})
			continue
		}

		operating, reason := CheckOperatingBasic(c)
		if !operating {
			rejected = append(rejected, Rejection{
				Candidate: c,
				Status:    StatusNonOperating,
				Reason:    reason,
			})
			continue
		}

		if f.deep {
			check, err := f.oracle.CheckOperating(ctx, c)
			// A failed check keeps the candidate; later validation
			// stages still apply.
			if err == nil && !check.IsOperating {
				why := check.Explanation
				if why == "" {
					why = "Non-operating entity: " + check.EntityType
				}
				rejected = append(rejected, Rejection{
					Candidate:  c,
					Status:     StatusNonOperating,
					Reason:     why,
					Confidence: check.Confidence,
				})
				continue
			}
			if err != nil {
				f.logger.Warn("deep operating check failed, keeping candidate",
					zap.String("ticker", c.Ticker),
					zap.Error(err))
			}
		}

		passed = append(passed, c)
	}

	f.logger.Info("entity filters applied",
		zap.Int("passed", len(passed)),
		zap.Int("rejected", len(rejected)))
	return passed, rejected
}
