package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compiq/internal/comps"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "compiq.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(n int) *comps.SearchResult {
	result := &comps.SearchResult{
		Metadata: comps.SearchMetadata{
			SearchID:         "test-search",
			TargetName:       "NicheCo",
			ValidationMethod: "dynamic_llm",
			Attempts:         1,
		},
	}
	for i := 1; i <= n; i++ {
		comp := comps.Comparable{
			Candidate: comps.Candidate{
				Name:     "Company " + string(rune('A'+i-1)),
				Ticker:   "CMP" + string(rune('0'+i)),
				Exchange: "NASDAQ",
				URL:      "https://example.com",
			},
			Score: float64(10 - i),
		}
		result.Comparables = append(result.Comparables, comp)
	}
	return result
}

func TestSaveAndLoadSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	target := comps.Target{Name: "NicheCo", Description: "niche software"}
	id, err := s.SaveSearch(ctx, target, sampleResult(3))
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	saved, err := s.SearchByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "NicheCo", saved.Target.Name)
	assert.Equal(t, "dynamic_llm", saved.Metadata.ValidationMethod)
	require.Len(t, saved.Comparables, 3)
	// Rank order preserved.
	assert.Equal(t, "CMP1", saved.Comparables[0].Ticker)
	assert.Equal(t, 9.0, saved.Comparables[0].Score)
}

func TestSearchByID_Missing(t *testing.T) {
	s := newTestStore(t)
	saved, err := s.SearchByID(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestRecentSearches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Alpha Corp", "Beta Inc", "Gamma LLC"} {
		_, err := s.SaveSearch(ctx, comps.Target{Name: name, Description: "d"}, sampleResult(2))
		require.NoError(t, err)
	}

	recent, err := s.RecentSearches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, r := range recent {
		assert.NotZero(t, r.ID)
		assert.Equal(t, 2, r.NumComparables)
	}
}

func TestCompanyCacheUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Saving twice must not duplicate companies.
	target := comps.Target{Name: "X", Description: "d"}
	_, err := s.SaveSearch(ctx, target, sampleResult(2))
	require.NoError(t, err)
	_, err = s.SaveSearch(ctx, target, sampleResult(2))
	require.NoError(t, err)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSearches)
	assert.Equal(t, 2, stats.UniqueCompanies)

	info, err := s.CompanyByTicker(ctx, "CMP1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Company A", info.Name)
	assert.True(t, info.IsPublic)
}

func TestSearchCompanies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSearch(ctx, comps.Target{Name: "X", Description: "d"}, sampleResult(3))
	require.NoError(t, err)

	byName, err := s.SearchCompanies(ctx, "Company B", 10)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "CMP2", byName[0].Ticker)

	byTicker, err := s.SearchCompanies(ctx, "CMP", 10)
	require.NoError(t, err)
	assert.Len(t, byTicker, 3)
}

func TestMostCommonComparables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// CMP1 and CMP2 appear twice, CMP3 once.
	_, err := s.SaveSearch(ctx, comps.Target{Name: "X", Description: "d"}, sampleResult(3))
	require.NoError(t, err)
	_, err = s.SaveSearch(ctx, comps.Target{Name: "Y", Description: "d"}, sampleResult(2))
	require.NoError(t, err)

	common, err := s.MostCommonComparables(ctx, 10)
	require.NoError(t, err)
	require.Len(t, common, 3)
	assert.Equal(t, 2, common[0].Frequency)
	assert.Equal(t, 2, common[1].Frequency)
	assert.Equal(t, 1, common[2].Frequency)
}

func TestSimilarSearches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSearch(ctx, comps.Target{Name: "Huron Consulting", Description: "d"}, sampleResult(1))
	require.NoError(t, err)
	_, err = s.SaveSearch(ctx, comps.Target{Name: "Other Co", Description: "d"}, sampleResult(1))
	require.NoError(t, err)

	similar, err := s.SimilarSearches(ctx, "Huron", 5)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "Huron Consulting", similar[0].TargetName)
}
