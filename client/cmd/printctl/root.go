package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/you-humble/printq/client/internal/apiclient"
	"github.com/you-humble/printq/client/internal/intake"
	"github.com/you-humble/printq/client/internal/pagecount"
	"github.com/you-humble/printq/client/internal/submission"
	"github.com/you-humble/printq/core/pricing"
)

var (
	apiURL      string
	printType   string
	wordTimeout time.Duration
	parallel    int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "printctl",
	Short:         "Quote and submit print orders",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	defaultURL := os.Getenv("PRINTQ_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultURL, "printq api base url")
	rootCmd.PersistentFlags().StringVarP(&printType, "print-type", "t", pricing.DefaultPrintType, "print type id")
	rootCmd.PersistentFlags().DurationVar(&wordTimeout, "word-timeout", pagecount.DefaultWordTimeout, "page count timeout for word documents")
	rootCmd.PersistentFlags().IntVar(&parallel, "parallel", pagecount.DefaultParallel, "files counted at once")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
}

// loadSession queues paths into a fresh session with the selected print type.
func loadSession(ctx context.Context, api *apiclient.Client, paths []string, obs submission.Observer) (*submission.Session, error) {
	cands := make([]intake.Candidate, 0, len(paths))
	for _, p := range paths {
		c, err := intake.FromPath(p)
		if err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}

	s := submission.NewSession(pagecount.NewResolver(api, wordTimeout, parallel), obs)
	if err := s.SetPrintType(printType); err != nil {
		return nil, err
	}

	added, err := s.AddFiles(ctx, cands)
	if err != nil {
		return nil, err
	}
	if skipped := len(cands) - len(added); skipped > 0 {
		slog.Warn("files skipped", slog.Int("count", skipped))
	}
	return s, nil
}

func printQuote(w io.Writer, q submission.Quote) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FILE\tPAGES\tCOST\t\n")
	for _, l := range q.Lines {
		note := ""
		if l.Status == intake.StatusDefaultedAfterFailure {
			note = "(page count defaulted)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.Name, l.Pages, l.Cost, note)
	}
	fmt.Fprintf(tw, "TOTAL (%s)\t%d\t%s\t\n", q.PrintType.Label, q.TotalPages, q.Total)
	return tw.Flush()
}
