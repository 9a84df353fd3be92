package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/you-humble/printq/client/internal/apiclient"
	"github.com/you-humble/printq/client/internal/submission"
)

var (
	customerName  string
	customerEmail string
	paperSize     string
)

var submitCmd = &cobra.Command{
	Use:   "submit FILE...",
	Short: "Place one print order per file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&customerName, "name", "", "customer name (required)")
	submitCmd.Flags().StringVar(&customerEmail, "email", "", "customer email (required)")
	submitCmd.Flags().StringVar(&paperSize, "paper", "A4", "paper size")
	_ = submitCmd.MarkFlagRequired("name")
	_ = submitCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	api := apiclient.New(apiURL, 0)
	obs := func(from, to submission.State) {
		slog.Debug("submission state", slog.String("from", string(from)), slog.String("to", string(to)))
	}

	s, err := loadSession(cmd.Context(), api, args, obs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printQuote(out, s.Quote()); err != nil {
		return err
	}

	res, err := s.Submit(cmd.Context(), api, submission.SubmitInput{
		Name:      customerName,
		Email:     customerEmail,
		PaperSize: paperSize,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	fmt.Fprintf(out, "\n%d of %d orders placed, total %s\n", res.Succeeded, res.Succeeded+res.Failed, res.Total)
	if res.Replayed {
		fmt.Fprintln(out, "this batch was already submitted, showing the original result")
	}
	if !res.NotificationDelivered {
		fmt.Fprintln(out, "orders were placed but the confirmation email could not be sent")
	}
	return nil
}
