package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"compiq/internal/comps"
	"compiq/internal/config"
	"compiq/internal/embedding"
	"compiq/internal/enrich"
	"compiq/internal/oracle"
	"compiq/internal/store"
)

var (
	searchName        string
	searchDescription string
	searchSIC         string
	searchURL         string
	searchMin         int
	searchMax         int
	searchAttempts    int
	searchAdvanced    bool
	searchDeepFilter  bool
	searchSave        bool
	searchJSON        bool
	searchCSV         string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find validated comparable companies for a target",
	Example: `  compiq search --name "Huron Consulting" \
    --description "Healthcare and education consulting services" \
    --sic 8742 --save`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchName, "name", "", "Target company name (required)")
	searchCmd.Flags().StringVar(&searchDescription, "description", "", "Target business description (required)")
	searchCmd.Flags().StringVar(&searchSIC, "sic", "", "Primary SIC code")
	searchCmd.Flags().StringVar(&searchURL, "url", "", "Target homepage URL")
	searchCmd.Flags().IntVar(&searchMin, "min", 0, "Minimum comparables required (default from config)")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "Maximum comparables returned (default from config)")
	searchCmd.Flags().IntVar(&searchAttempts, "attempts", 0, "Maximum search attempts (default from config)")
	searchCmd.Flags().BoolVar(&searchAdvanced, "advanced", false, "Use the multi-dimensional scorer")
	searchCmd.Flags().BoolVar(&searchDeepFilter, "deep-filter", false, "Run the LLM operating-entity check on every candidate")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "Persist the search to the local database")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the full result as JSON")
	searchCmd.Flags().StringVar(&searchCSV, "csv", "", "Export results to a CSV file")
	_ = searchCmd.MarkFlagRequired("name")
	_ = searchCmd.MarkFlagRequired("description")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	target := comps.Target{
		Name:        searchName,
		Description: searchDescription,
		PrimarySIC:  searchSIC,
		HomepageURL: searchURL,
	}

	result := pipeline.FindComparables(cmd.Context(), target)

	if len(result.Comparables) < minRequired(cfg) {
		logger.Warn("search finished below minimum",
			zap.Int("found", len(result.Comparables)),
			zap.Int("min_required", minRequired(cfg)))
	}

	if searchSave {
		s, err := store.New(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()

		id, err := s.SaveSearch(cmd.Context(), target, result)
		if err != nil {
			return fmt.Errorf("failed to save search: %w", err)
		}
		fmt.Printf("Saved as search #%d\n\n", id)
	}

	if searchCSV != "" {
		if err := writeCSV(searchCSV, result); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		fmt.Printf("Exported to %s\n\n", searchCSV)
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(os.Stdout, target, result)
	return nil
}

// buildPipeline wires the oracle, embedding engine, scorer, and
// optional enricher from configuration.
func buildPipeline(cfg *config.Config) (*comps.Pipeline, error) {
	client, err := oracle.NewClient(oracle.ClientConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.GetLLMTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Provider: cfg.Embedding.Provider,
		APIKey:   cfg.Embedding.APIKey,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}

	o := comps.NewLLMOracle(client, logger)
	opts := comps.Options{
		MinRequired:   firstPositive(searchMin, cfg.Search.MinRequired),
		MaxAllowed:    firstPositive(searchMax, cfg.Search.MaxAllowed),
		MaxAttempts:   firstPositive(searchAttempts, cfg.Search.MaxAttempts),
		MaxCandidates: cfg.Search.MaxCandidates,
		BatchSize:     cfg.Search.BatchSize,
		BatchDelay:    cfg.GetBatchDelay(),
		DeepFilter:    searchDeepFilter || cfg.Search.DeepFilter,
	}

	pipeline := comps.NewPipeline(o, engine, opts, logger)
	if searchAdvanced {
		pipeline.SetScorer(comps.NewAdvancedScorer(o, engine, logger))
	}
	if cfg.Enrichment.Enabled {
		pipeline.SetEnricher(enrich.NewClient(cfg.Enrichment.BaseURL, cfg.GetEnrichTimeout(), logger))
	}
	return pipeline, nil
}

func minRequired(cfg *config.Config) int {
	return firstPositive(searchMin, cfg.Search.MinRequired)
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
