package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compiq/internal/comps"
)

func TestEnrichBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("ticker") {
		case "AAA":
			w.Write([]byte(`{"market_cap": 5e9, "revenue": 1.2e9, "price": 42.5, "currency": "USD"}`))
		case "BBB":
			http.Error(w, "not found", http.StatusNotFound)
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil)
	got, err := c.EnrichBatch(context.Background(), []comps.Comparable{
		{Candidate: comps.Candidate{Ticker: "AAA", Exchange: "NYSE"}},
		{Candidate: comps.Candidate{Ticker: "BBB", Exchange: "NYSE"}},
		{Candidate: comps.Candidate{Ticker: "CCC", Exchange: "NYSE"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NotNil(t, got[0].Financials)
	assert.Equal(t, 5e9, got[0].Financials.MarketCap)
	assert.Equal(t, "USD", got[0].Financials.Currency)
	// Failures stay partial instead of aborting the batch.
	assert.Nil(t, got[1].Financials)
	assert.Nil(t, got[2].Financials)
}

func TestNopEnricher(t *testing.T) {
	in := []comps.Comparable{{Candidate: comps.Candidate{Ticker: "AAA"}}}
	got, err := NopEnricher{}.EnrichBatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, got)
	assert.Nil(t, got[0].Financials)
}
