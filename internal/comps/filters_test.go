package comps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCompanyData(t *testing.T) {
	good := makeCandidate(1)
	assert.True(t, ValidCompanyData(good))

	missing := good
	missing.URL = ""
	assert.False(t, ValidCompanyData(missing))

	blank := good
	blank.Ticker = "   "
	assert.False(t, ValidCompanyData(blank))

	for _, placeholder := range []string{"na", "N/A", "None", "unknown"} {
		c := good
		c.Exchange = placeholder
		assert.False(t, ValidCompanyData(c), placeholder)
	}
}

func TestCheckOperatingBasic(t *testing.T) {
	operating := makeCandidate(1)
	ok, reason := CheckOperatingBasic(operating)
	assert.True(t, ok)
	assert.Empty(t, reason)

	cases := map[string]string{
		"Diversified Holding Company for industrial assets": "Holding company structure",
		"A SPAC seeking acquisition targets":                "Special Purpose Acquisition Company",
		"Blank check entity formed in Delaware":             "Blank check company",
		"Closed-end investment trust":                       "Investment trust structure",
	}
	for activity, wantReason := range cases {
		c := makeCandidate(2)
		c.BusinessActivity = activity
		ok, reason := CheckOperatingBasic(c)
		assert.False(t, ok, activity)
		assert.Equal(t, wantReason, reason)
	}

	// Name alone can trip the screen.
	named := makeCandidate(3)
	named.Name = "Atlas Shell Company Ltd"
	ok, _ = CheckOperatingBasic(named)
	assert.False(t, ok)
}

func TestEntityFilter_Screen(t *testing.T) {
	incomplete := makeCandidate(1)
	incomplete.BusinessActivity = "n/a"

	spac := makeCandidate(2)
	spac.BusinessActivity = "Special purpose acquisition vehicle"

	good := makeCandidate(3)

	f := NewEntityFilter(&fakeOracle{}, false, nil)
	passed, rejected := f.Screen(context.Background(), []Candidate{incomplete, spac, good})

	require.Len(t, passed, 1)
	assert.Equal(t, "CMP3", passed[0].Ticker)

	require.Len(t, rejected, 2)
	assert.Equal(t, StatusDataInvalid, rejected[0].Status)
	assert.Equal(t, "Incomplete data", rejected[0].Reason)
	assert.Equal(t, StatusNonOperating, rejected[1].Status)
	assert.NotEmpty(t, rejected[1].Reason)
}

func TestEntityFilter_DeepCheck(t *testing.T) {
	oracle := &fakeOracle{
		checkOperatingFn: func(c Candidate) (OperatingCheck, error) {
			if c.Ticker == "CMP1" {
				return OperatingCheck{
					IsOperating: false,
					EntityType:  "holding_company",
					Confidence:  ConfidenceHigh,
					Explanation: "Owns subsidiaries without direct operations",
				}, nil
			}
			if c.Ticker == "CMP2" {
				return OperatingCheck{}, assert.AnError
			}
			return OperatingCheck{IsOperating: true}, nil
		},
	}

	f := NewEntityFilter(oracle, true, nil)
	passed, rejected := f.Screen(context.Background(),
		[]Candidate{makeCandidate(1), makeCandidate(2), makeCandidate(3)})

	// A failed deep check keeps the candidate.
	require.Len(t, passed, 2)
	assert.Equal(t, "CMP2", passed[0].Ticker)

	require.Len(t, rejected, 1)
	assert.Equal(t, StatusNonOperating, rejected[0].Status)
	assert.Equal(t, "Owns subsidiaries without direct operations", rejected[0].Reason)
}
