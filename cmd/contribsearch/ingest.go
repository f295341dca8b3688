package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestShowErrors int

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Load FEC itcont files into the store",
	Long:  `Load pipe-delimited FEC individual contribution files. Rows already stored are skipped; malformed rows are reported and skipped.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestShowErrors, "show-errors", 10, "number of row errors to print")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.load(ctx, args)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d, skipped %d, failed %d\n", res.Imported, res.Skipped, len(res.Errors))
	for i, rowErr := range res.Errors {
		if i == ingestShowErrors {
			fmt.Fprintf(out, "... %d more\n", len(res.Errors)-i)
			break
		}
		fmt.Fprintf(out, "  %v\n", rowErr)
	}
	return err
}
