package comps

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejection_PromotesCandidateAndKeepsCompanyKey(t *testing.T) {
	r := Rejection{
		Candidate: Candidate{Name: "OldCo", Ticker: "OLD", Exchange: "NYSE"},
		Status:    StatusAcquired,
		Reason:    "No longer publicly traded",
	}

	// Candidate fields read directly off the rejection.
	assert.Equal(t, "OldCo", r.Name)
	assert.Equal(t, "OLD", r.Ticker)
	assert.Equal(t, "NYSE", r.Exchange)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Contains(t, decoded, "company")

	var company Candidate
	require.NoError(t, json.Unmarshal(decoded["company"], &company))
	assert.Equal(t, "OLD", company.Ticker)
}
