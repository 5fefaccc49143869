package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/intelligrit/wingstack/internal/extractor"
	"github.com/intelligrit/wingstack/internal/model"
	"github.com/intelligrit/wingstack/internal/scraper"
	"github.com/intelligrit/wingstack/internal/store"
	"github.com/spf13/cobra"
)

var (
	scrapeKind         string
	scrapeSave         bool
	scrapePlannerEmail string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape URL...",
	Short: "Fetch pages (rate-limited) and run an extraction flow on their text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := extractor.ParseTaskKind(scrapeKind)
		if err != nil {
			return err
		}
		if kind == extractor.TaskChatSummary {
			return fmt.Errorf("chat summaries cannot be scraped")
		}
		if scrapeSave && kind != extractor.TaskTripRequest {
			return fmt.Errorf("--save only applies to trip extraction")
		}

		orch, cleanup, err := buildPipeline()
		if err != nil {
			return err
		}
		defer cleanup()

		var s *store.Store
		if scrapeSave {
			s, err = store.New(dataDir)
			if err != nil {
				return err
			}
			defer s.Close()
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		fetcher := scraper.NewFetcher(cfg.Scrape.RateLimit, cfg.Scrape.Timeout)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		for i, url := range args {
			select {
			case <-ctx.Done():
				fmt.Fprintf(os.Stderr, "\nInterrupted after %d/%d pages\n", i, len(args))
				return nil
			default:
			}

			page, err := fetcher.Fetch(ctx, url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  WARNING: failed to fetch %q: %v\n", url, err)
				continue
			}
			logVerbose("  [%d/%d] %s (%d chars)", i+1, len(args), page.Title, len(page.Text))

			out := runFlow(ctx, orch, kind, url, page.Text)
			if err := enc.Encode(out); err != nil {
				return err
			}

			if s != nil {
				result := out.Result.(model.TripResult)
				trip := &model.Trip{
					PassengerCount: result.Request.PassengerCount,
					Budget:         result.Request.Budget,
					Legs:           result.Request.Legs,
					PlannerEmail:   scrapePlannerEmail,
					Notes:          "Scraped from " + url,
				}
				if err := s.CreateTrip(trip); err != nil {
					return fmt.Errorf("saving trip: %w", err)
				}
				fmt.Fprintf(os.Stderr, "  saved trip %s (%s)\n", trip.ID, trip.Route)
			}
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeKind, "kind", "trip", "Extraction flow: trip, email-quote or pdf-quote")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "Store each extracted trip as a pending trip")
	scrapeCmd.Flags().StringVar(&scrapePlannerEmail, "planner-email", "", "Planner email recorded on saved trips")
	rootCmd.AddCommand(scrapeCmd)
}
