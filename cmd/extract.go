package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/intelligrit/wingstack/internal/extractor"
	"github.com/intelligrit/wingstack/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	extractKind     string
	extractParallel int
)

// extractOutput is one line of extract's JSON output.
type extractOutput struct {
	Input  string `json:"input"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [FILE...]",
	Short: "Run an extraction flow over text files (or stdin) and print JSON",
	Long: `Reads each FILE (or stdin when none is given, or for "-") and runs the
trip, email-quote or pdf-quote flow over it. One JSON object is printed per
input, in argument order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := extractor.ParseTaskKind(extractKind)
		if err != nil {
			return err
		}
		if kind == extractor.TaskChatSummary {
			return fmt.Errorf("chat summaries are generated per trip with the API")
		}
		if len(args) == 0 {
			args = []string{"-"}
		}

		orch, cleanup, err := buildPipeline()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		outputs := make([]extractOutput, len(args))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(extractParallel, 1))

		for i, name := range args {
			g.Go(func() error {
				text, err := readInput(cmd.InOrStdin(), name)
				if err != nil {
					return err
				}
				logVerbose("  [%d/%d] %s (%d chars)", i+1, len(args), name, len(text))
				outputs[i] = runFlow(gctx, orch, kind, name, text)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		failed := 0
		for _, out := range outputs {
			if out.Error != "" {
				failed++
			}
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d inputs failed extraction", failed, len(outputs))
		}
		return nil
	},
}

func readInput(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}

func runFlow(ctx context.Context, orch *pipeline.Orchestrator, kind extractor.TaskKind, name, text string) extractOutput {
	out := extractOutput{Input: name}
	switch kind {
	case extractor.TaskTripRequest:
		out.Result = orch.ParseTrip(ctx, text)
		return out
	case extractor.TaskEmailQuote:
		quote, err := orch.ParseEmailQuote(ctx, text)
		return quoteOutput(out, quote, err)
	case extractor.TaskPDFQuote:
		quote, err := orch.ParsePDFQuote(ctx, text)
		return quoteOutput(out, quote, err)
	}
	out.Error = fmt.Sprintf("unsupported kind %s", kind)
	return out
}

func quoteOutput(out extractOutput, quote any, err error) extractOutput {
	if err != nil {
		out.Error = err.Error()
		var extErr *pipeline.ExtractionError
		if errors.As(err, &extErr) {
			out.Raw = extErr.Raw
		}
		return out
	}
	out.Result = quote
	return out
}

func init() {
	extractCmd.Flags().StringVar(&extractKind, "kind", "trip", "Extraction flow: trip, email-quote or pdf-quote")
	extractCmd.Flags().IntVar(&extractParallel, "parallel", 4, "Number of inputs to extract concurrently")
	rootCmd.AddCommand(extractCmd)
}

func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
