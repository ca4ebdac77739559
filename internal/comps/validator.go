package comps

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StatusValidator verifies public trading status with an in-memory
// cache keyed by ticker+exchange. The cache lives for the lifetime of
// one validator instance; construct a fresh validator to force
// re-verification.
//
// Verification is batch-first for efficiency; a batch response that
// fails or comes back with the wrong length falls back to per-item
// calls. An inter-batch delay respects external rate limits.
type StatusValidator struct {
	oracle     Oracle
	cache      map[string]VerificationRecord
	batchSize  int
	batchDelay time.Duration
	sleep      func(time.Duration)
	logger     *zap.Logger
}

// NewStatusValidator creates a validator with an empty cache.
func NewStatusValidator(o Oracle, logger *zap.Logger) *StatusValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusValidator{
		oracle:     o,
		cache:      make(map[string]VerificationRecord),
		batchSize:  5,
		batchDelay: 500 * time.Millisecond,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// verificationKey is the sole cache/deduplication key.
func verificationKey(c Candidate) string {
	return strings.ToUpper(strings.TrimSpace(c.Ticker)) + ":" + c.Exchange
}

// VerifyAll returns one record per candidate, order-aligned with the
// input. Each distinct ticker+exchange pair costs at most one oracle
// call per validator lifetime, duplicates included.
func (v *StatusValidator) VerifyAll(ctx context.Context, candidates []Candidate) []VerificationRecord {
	// Collect uncached, unseen candidates in input order.
	var pending []Candidate
	seen := make(map[string]bool)
	for _, c := range candidates {
		key := verificationKey(c)
		if _, cached := v.cache[key]; cached || seen[key] {
			continue
		}
		seen[key] = true
		pending = append(pending, c)
	}

	if len(pending) > 0 {
		v.logger.Info("verifying public status",
			zap.Int("pending", len(pending)),
			zap.Int("cached", len(candidates)-len(pending)))
	}

	for i := 0; i < len(pending); i += v.batchSize {
		batch := pending[i:min(i+v.batchSize, len(pending))]
		v.verifyBatch(ctx, batch)

		if i+v.batchSize < len(pending) {
			v.sleep(v.batchDelay)
		}
	}

	out := make([]VerificationRecord, len(candidates))
	for i, c := range candidates {
		out[i] = v.cache[verificationKey(c)]
	}
	return out
}

// verifyBatch fills the cache for one batch, falling back to individual
// verification when the batch response is unusable.
func (v *StatusValidator) verifyBatch(ctx context.Context, batch []Candidate) {
	recs, err := v.oracle.VerifyStatusBatch(ctx, batch)
	if err != nil || len(recs) != len(batch) {
		if err != nil {
			v.logger.Warn("batch verification failed, falling back to individual", zap.Error(err))
		} else {
			v.logger.Warn("batch verification length mismatch, falling back to individual",
				zap.Int("expected", len(batch)),
				zap.Int("got", len(recs)))
		}
		for _, c := range batch {
			v.cache[verificationKey(c)] = v.verifyOne(ctx, c)
		}
		return
	}

	for i, c := range batch {
		v.cache[verificationKey(c)] = recs[i]
	}
}

// verifyOne verifies a single candidate, degrading to UNCERTAIN/LOW on
// failure rather than propagating an error.
func (v *StatusValidator) verifyOne(ctx context.Context, c Candidate) VerificationRecord {
	rec, err := v.oracle.VerifyStatus(ctx, c)
	if err != nil {
		v.logger.Warn("verification failed",
			zap.String("ticker", c.Ticker),
			zap.Error(err))
		return VerificationRecord{
			Ticker:     strings.ToUpper(strings.TrimSpace(c.Ticker)),
			Name:       c.Name,
			Exchange:   c.Exchange,
			Status:     StatusUncertain,
			Confidence: ConfidenceLow,
			Reason:     "Verification failed - manual check required",
		}
	}
	return rec
}

// Validate verifies candidates and applies the uniform decision policy:
//
//	publicly traded + ACTIVE            -> accept (caveat on material changes)
//	not traded, or M&A/delisted/private -> reject with oracle reason
//	UNCERTAIN at LOW confidence         -> reject for manual review
//	UNCERTAIN at MEDIUM/HIGH confidence -> accept flagged needs-verification
func (v *StatusValidator) Validate(ctx context.Context, candidates []Candidate) ([]Comparable, []Rejection) {
	if len(candidates) == 0 {
		return nil, nil
	}

	verifications := v.VerifyAll(ctx, candidates)

	var valid []Comparable
	var rejected []Rejection

	for i, c := range candidates {
		rec := verifications[i]

		switch {
		case rec.IsPubliclyTraded != nil && *rec.IsPubliclyTraded && rec.Status == StatusActive:
			comp := Comparable{Candidate: c}
			if rec.MaterialChanges != "" {
				comp.Caveat = "Material change: " + rec.MaterialChanges
				v.logger.Info("active with caveat",
					zap.String("ticker", c.Ticker),
					zap.String("caveat", rec.MaterialChanges))
			}
			valid = append(valid, comp)

		case (rec.IsPubliclyTraded != nil && !*rec.IsPubliclyTraded) || rejectingStatus(rec.Status):
			reason := rec.Reason
			if reason == "" {
				reason = "No longer publicly traded"
			}
			rejected = append(rejected, Rejection{
				Candidate:  c,
				Status:     rec.Status,
				Reason:     reason,
				Acquirer:   rec.Acquirer,
				Date:       rec.DateChanged,
				Confidence: rec.Confidence,
			})
			v.logger.Info("rejected",
				zap.String("ticker", c.Ticker),
				zap.String("status", string(rec.Status)))

		case rec.Status == StatusUncertain && rec.Confidence == ConfidenceLow:
			rejected = append(rejected, Rejection{
				Candidate:  c,
				Status:     StatusUncertain,
				Reason:     "Could not confirm public trading status - manual verification required",
				Confidence: ConfidenceLow,
			})

		default:
			// Uncertain but medium/high confidence on being active.
			note := rec.Reason
			if note == "" {
				note = "Status uncertain"
			}
			valid = append(valid, Comparable{
				Candidate:         c,
				NeedsVerification: true,
				VerificationNote:  note,
			})
		}
	}

	v.logger.Info("status validation complete",
		zap.Int("valid", len(valid)),
		zap.Int("rejected", len(rejected)))
	return valid, rejected
}

func rejectingStatus(s TradingStatus) bool {
	switch s {
	case StatusAcquired, StatusMerged, StatusDelisted, StatusPrivate:
		return true
	}
	return false
}
