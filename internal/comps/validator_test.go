package comps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(o Oracle) (*StatusValidator, *sleepRecorder) {
	v := NewStatusValidator(o, nil)
	rec := &sleepRecorder{}
	v.sleep = rec.sleep
	return v, rec
}

func TestValidator_CacheOneCallPerKey(t *testing.T) {
	oracle := &fakeOracle{}
	v, _ := newTestValidator(oracle)

	a := makeCandidate(1)
	dup := makeCandidate(1)
	dup.Name = "Company 1 Incorporated" // same ticker+exchange

	recs := v.VerifyAll(context.Background(), []Candidate{a, dup})
	require.Len(t, recs, 2)
	assert.Equal(t, 1, oracle.verifyBatchCalls, "duplicates must share one verification")
	assert.Equal(t, 0, oracle.verifyCalls)

	// Second pass served entirely from cache.
	v.VerifyAll(context.Background(), []Candidate{a, dup})
	assert.Equal(t, 1, oracle.verifyBatchCalls)
}

func TestValidator_TickerCaseInsensitiveKey(t *testing.T) {
	oracle := &fakeOracle{}
	v, _ := newTestValidator(oracle)

	a := makeCandidate(1)
	b := makeCandidate(1)
	b.Ticker = " cmp1 "

	v.VerifyAll(context.Background(), []Candidate{a, b})
	assert.Equal(t, 1, oracle.verifyBatchCalls)
}

func TestValidator_BatchLengthMismatchFallsBack(t *testing.T) {
	oracle := &fakeOracle{
		verifyBatchFn: func(batch []Candidate) ([]VerificationRecord, error) {
			// Wrong length: drop the last record.
			recs := make([]VerificationRecord, 0, len(batch))
			for _, c := range batch[:len(batch)-1] {
				recs = append(recs, activeRecord(c))
			}
			return recs, nil
		},
	}
	v, _ := newTestValidator(oracle)

	batch := make([]Candidate, 5)
	for i := range batch {
		batch[i] = makeCandidate(i)
	}

	recs := v.VerifyAll(context.Background(), batch)
	require.Len(t, recs, 5)
	assert.Equal(t, 1, oracle.verifyBatchCalls)
	assert.Equal(t, 5, oracle.verifyCalls, "each batch member verified individually")
}

func TestValidator_InterBatchDelay(t *testing.T) {
	oracle := &fakeOracle{}
	v, sleeps := newTestValidator(oracle)

	batch := make([]Candidate, 7)
	for i := range batch {
		batch[i] = makeCandidate(i)
	}

	v.VerifyAll(context.Background(), batch)
	assert.Equal(t, 2, oracle.verifyBatchCalls, "7 candidates split into batches of 5 and 2")
	require.Len(t, sleeps.slept, 1)
	assert.Equal(t, 500*time.Millisecond, sleeps.slept[0])
}

func TestValidator_IndividualFailureYieldsUncertainLow(t *testing.T) {
	oracle := &fakeOracle{
		verifyBatchFn: func([]Candidate) ([]VerificationRecord, error) {
			return nil, assert.AnError
		},
		verifyFn: func(Candidate) (VerificationRecord, error) {
			return VerificationRecord{}, assert.AnError
		},
	}
	v, _ := newTestValidator(oracle)

	valid, rejected := v.Validate(context.Background(), []Candidate{makeCandidate(1)})
	assert.Empty(t, valid)
	require.Len(t, rejected, 1)
	assert.Equal(t, StatusUncertain, rejected[0].Status)
	assert.Equal(t, ConfidenceLow, rejected[0].Confidence)
	assert.Contains(t, rejected[0].Reason, "manual verification required")
}

func TestValidator_DecisionPolicy(t *testing.T) {
	active := makeCandidate(1)
	activeWithChanges := makeCandidate(2)
	acquired := makeCandidate(3)
	notTraded := makeCandidate(4)
	uncertainLow := makeCandidate(5)
	uncertainMedium := makeCandidate(6)

	records := map[string]VerificationRecord{
		"CMP1": activeRecord(active),
		"CMP2": func() VerificationRecord {
			r := activeRecord(activeWithChanges)
			r.MaterialChanges = "divested consulting arm in 2024"
			return r
		}(),
		"CMP3": {
			Ticker: "CMP3", IsPubliclyTraded: boolPtr(false),
			Status: StatusAcquired, Confidence: ConfidenceHigh,
			Reason: "Acquired by MegaCorp", Acquirer: "MegaCorp (MGC)", DateChanged: "2023-06-01",
		},
		"CMP4": {
			Ticker: "CMP4", IsPubliclyTraded: boolPtr(false),
			Status: StatusUncertain, Confidence: ConfidenceMedium,
			Reason: "No longer listed",
		},
		"CMP5": {
			Ticker: "CMP5", Status: StatusUncertain, Confidence: ConfidenceLow,
		},
		"CMP6": {
			Ticker: "CMP6", Status: StatusUncertain, Confidence: ConfidenceMedium,
			Reason: "Listing could not be confirmed",
		},
	}

	oracle := &fakeOracle{
		verifyBatchFn: func(batch []Candidate) ([]VerificationRecord, error) {
			recs := make([]VerificationRecord, len(batch))
			for i, c := range batch {
				recs[i] = records[c.Ticker]
			}
			return recs, nil
		},
	}
	v, _ := newTestValidator(oracle)

	valid, rejected := v.Validate(context.Background(),
		[]Candidate{active, activeWithChanges, acquired, notTraded, uncertainLow, uncertainMedium})

	require.Len(t, valid, 3)
	assert.Equal(t, "CMP1", valid[0].Ticker)
	assert.Empty(t, valid[0].Caveat)

	assert.Equal(t, "CMP2", valid[1].Ticker)
	assert.Equal(t, "Material change: divested consulting arm in 2024", valid[1].Caveat)

	assert.Equal(t, "CMP6", valid[2].Ticker)
	assert.True(t, valid[2].NeedsVerification)
	assert.Equal(t, "Listing could not be confirmed", valid[2].VerificationNote)

	require.Len(t, rejected, 3)
	for _, r := range rejected {
		assert.NotEmpty(t, r.Reason)
		assert.NotEmpty(t, r.Status)
	}
	assert.Equal(t, StatusAcquired, rejected[0].Status)
	assert.Equal(t, "MegaCorp (MGC)", rejected[0].Acquirer)
	assert.Equal(t, "2023-06-01", rejected[0].Date)
	assert.Equal(t, StatusUncertain, rejected[1].Status)
	assert.Contains(t, rejected[2].Reason, "manual verification required")
}
