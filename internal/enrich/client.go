// Package enrich attaches market data to validated comparables by
// querying an external quote service. Enrichment is best effort and
// never fails a search.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"compiq/internal/comps"
)

// Client fetches quotes from an HTTP quote service.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// quoteResponse is the quote service's payload for one ticker.
type quoteResponse struct {
	MarketCap float64 `json:"market_cap"`
	Revenue   float64 `json:"revenue"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

// NewClient creates an enrichment client against baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// EnrichBatch fetches financials for each comparable. Individual
// failures leave that comparable without financials and continue.
func (c *Client) EnrichBatch(ctx context.Context, comparables []comps.Comparable) ([]comps.Comparable, error) {
	enriched := 0
	for i := range comparables {
		fin, err := c.fetchQuote(ctx, comparables[i].Ticker, comparables[i].Exchange)
		if err != nil {
			c.logger.Debug("quote fetch failed",
				zap.String("ticker", comparables[i].Ticker),
				zap.Error(err))
			continue
		}
		comparables[i].Financials = fin
		enriched++
	}

	c.logger.Info("enrichment complete",
		zap.Int("enriched", enriched),
		zap.Int("total", len(comparables)))
	return comparables, nil
}

func (c *Client) fetchQuote(ctx context.Context, ticker, exchange string) (*comps.Financials, error) {
	endpoint := fmt.Sprintf("%s/quote?ticker=%s&exchange=%s",
		c.baseURL, url.QueryEscape(ticker), url.QueryEscape(exchange))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned %d: %s", resp.StatusCode, string(body))
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}

	return &comps.Financials{
		MarketCap: quote.MarketCap,
		Revenue:   quote.Revenue,
		Price:     quote.Price,
		Currency:  quote.Currency,
	}, nil
}

// NopEnricher passes comparables through untouched. Used when
// enrichment is disabled.
type NopEnricher struct{}

func (NopEnricher) EnrichBatch(_ context.Context, comparables []comps.Comparable) ([]comps.Comparable, error) {
	return comparables, nil
}
