package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"compiq/internal/store"
)

var (
	historyLimit int
	showJSON     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent comparable searches",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()

		recent, err := s.RecentSearches(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(recent) == 0 {
			fmt.Println("No saved searches.")
			return nil
		}

		for _, r := range recent {
			fmt.Printf("#%-5d %-40s %2d comparables  %s\n",
				r.ID, r.TargetName, r.NumComparables, r.Timestamp.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <search-id>",
	Short: "Show a saved search in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid search id %q", args[0])
		}

		s, err := store.New(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()

		saved, err := s.SearchByID(cmd.Context(), id)
		if err != nil {
			return err
		}
		if saved == nil {
			return fmt.Errorf("search #%d not found", id)
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(saved)
		}

		result := savedToResult(saved)
		printResult(os.Stdout, saved.Target, result)
		return nil
	},
}

var companiesCmd = &cobra.Command{
	Use:   "companies <query>",
	Short: "Search the verified-company cache by name or ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()

		matches, err := s.SearchCompanies(cmd.Context(), args[0], 20)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No matching companies.")
			return nil
		}

		for _, m := range matches {
			status := "private/unknown"
			if m.IsPublic {
				status = "public"
			}
			fmt.Printf("%-40s %-8s %-10s %s  verified %s\n",
				m.Name, m.Ticker, m.Exchange, status, m.LastVerified.Format("2006-01-02"))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database totals and the most recurrent comparables",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer s.Close()

		stats, err := s.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Searches:  %d\n", stats.TotalSearches)
		fmt.Printf("Companies: %d\n", stats.UniqueCompanies)

		common, err := s.MostCommonComparables(cmd.Context(), 10)
		if err != nil {
			return err
		}
		if len(common) > 0 {
			fmt.Println("\nMost common comparables:")
			for _, c := range common {
				fmt.Printf("  %-40s %-8s x%-3d avg %.2f\n", c.Name, c.Ticker, c.Frequency, c.AvgScore)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of searches to list")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the saved search as JSON")
}
