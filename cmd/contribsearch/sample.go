package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jask/contribsearch/internal/testdata"
)

var (
	sampleRows int
	sampleSeed uint64
	sampleOut  string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a synthetic itcont file for demos and load tests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rows := testdata.Contributions(sampleRows, sampleSeed)
		if sampleOut == "" || sampleOut == "-" {
			return testdata.WriteItcont(cmd.OutOrStdout(), rows)
		}
		f, err := os.Create(sampleOut)
		if err != nil {
			return err
		}
		if err := testdata.WriteItcont(f, rows); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(rows), sampleOut)
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVar(&sampleRows, "rows", 1000, "number of rows")
	sampleCmd.Flags().Uint64Var(&sampleSeed, "seed", 1, "generator seed")
	sampleCmd.Flags().StringVarP(&sampleOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(sampleCmd)
}
