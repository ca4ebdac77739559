package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"compiq/internal/comps"
	"compiq/internal/store"
)

// printResult renders a search result as a ranked report.
func printResult(w io.Writer, target comps.Target, result *comps.SearchResult) {
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(w, "COMPARABLE COMPANIES: %s\n", target.Name)
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(w, "Specialization: %.2f | Business model: %s | Attempts: %d\n\n",
		result.Metadata.Profile.SpecializationLevel,
		result.Metadata.Profile.BusinessModel,
		result.Metadata.Attempts)

	if len(result.Comparables) == 0 {
		fmt.Fprintln(w, "No validated comparables found.")
	}

	for i, c := range result.Comparables {
		fmt.Fprintf(w, "%d. %s (%s: %s)  score %.2f\n", i+1, c.Name, c.Exchange, c.Ticker, c.Score)
		if c.BusinessActivity != "" {
			fmt.Fprintf(w, "   %s\n", c.BusinessActivity)
		}
		if c.Financials != nil && c.Financials.MarketCap > 0 {
			fmt.Fprintf(w, "   Market cap: %s %s\n", formatMarketCap(c.Financials.MarketCap), c.Financials.Currency)
		}
		if c.Caveat != "" {
			fmt.Fprintf(w, "   ⚠ %s\n", c.Caveat)
		}
		if c.NeedsVerification {
			fmt.Fprintf(w, "   ? Needs manual verification: %s\n", c.VerificationNote)
		}
		printBreakdown(w, c.Breakdown)
		fmt.Fprintln(w)
	}

	if len(result.Metadata.Rejected) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 70))
		fmt.Fprintf(w, "REJECTED (%d)\n", len(result.Metadata.Rejected))
		for _, r := range result.Metadata.Rejected {
			line := fmt.Sprintf("  %s (%s): %s - %s", r.Name, r.Ticker, r.Status, r.Reason)
			if r.Acquirer != "" {
				line += " by " + r.Acquirer
			}
			if r.Date != "" {
				line += " on " + r.Date
			}
			fmt.Fprintln(w, line)
		}
	}
}

func printBreakdown(w io.Writer, breakdown map[string]string) {
	if len(breakdown) == 0 {
		return
	}
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "   · %s: %s\n", k, breakdown[k])
	}
}

func formatMarketCap(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.1fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// savedToResult rehydrates a stored search for the standard renderer.
func savedToResult(saved *store.SavedSearch) *comps.SearchResult {
	return &comps.SearchResult{
		Comparables: saved.Comparables,
		Metadata:    saved.Metadata,
	}
}

// writeCSV exports accepted comparables and rejections to one file.
func writeCSV(path string, result *comps.SearchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"rank", "name", "ticker", "exchange", "score", "business_activity", "caveat", "needs_verification", "status", "reason"}); err != nil {
		return err
	}

	for i, c := range result.Comparables {
		record := []string{
			strconv.Itoa(i + 1),
			c.Name, c.Ticker, c.Exchange,
			strconv.FormatFloat(c.Score, 'f', 2, 64),
			c.BusinessActivity,
			c.Caveat,
			strconv.FormatBool(c.NeedsVerification),
			"ACCEPTED", "",
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	for _, r := range result.Metadata.Rejected {
		record := []string{
			"", r.Name, r.Ticker, r.Exchange, "",
			r.BusinessActivity, "", "",
			string(r.Status), r.Reason,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}
