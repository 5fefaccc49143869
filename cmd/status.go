package cmd

import (
	"fmt"

	"github.com/intelligrit/wingstack/internal/model"
	"github.com/intelligrit/wingstack/internal/pipeline"
	"github.com/intelligrit/wingstack/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored trips, quotes, messages and extraction failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		counts, err := s.Counts()
		if err != nil {
			return fmt.Errorf("counting records: %w", err)
		}

		failLog := dataPath(cfg.Extract.FailureLog)
		failures, err := pipeline.CountRecords(failLog)
		if err != nil {
			return fmt.Errorf("reading failure log: %w", err)
		}

		total := 0
		for _, n := range counts.TripsByStatus {
			total += n
		}

		fmt.Printf("Wingstack Status\n")
		fmt.Printf("================\n")
		fmt.Printf("Trips:    %d\n", total)
		for _, status := range []model.TripStatus{model.StatusPending, model.StatusBooked, model.StatusArchived, model.StatusDeleted} {
			fmt.Printf("  %-9s %d\n", status, counts.TripsByStatus[status])
		}
		fmt.Printf("Quotes:   %d\n", counts.Quotes)
		fmt.Printf("Messages: %d\n", counts.Messages)
		fmt.Printf("\nExtraction fallbacks logged: %d (%s)\n", failures, failLog)
		fmt.Printf("Provider: %s / %s\n", cfg.Extract.Provider, cfg.Extract.Model)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
