package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/you-humble/printq/client/internal/apiclient"
	"github.com/you-humble/printq/core/pricing"
)

var quoteCmd = &cobra.Command{
	Use:   "quote FILE...",
	Short: "Count pages and price the files without ordering",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api := apiclient.New(apiURL, 0)
		s, err := loadSession(cmd.Context(), api, args, nil)
		if err != nil {
			return err
		}
		return printQuote(cmd.OutOrStdout(), s.Quote())
	},
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List print types and their page prices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, pt := range pricing.Options() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-24s %s/page\n", pt.ID, pt.Label, pt.PricePerPage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd, typesCmd)
}
