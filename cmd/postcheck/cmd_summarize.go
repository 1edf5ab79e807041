package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/draws"
	"github.com/postcheck/postcheck/internal/summary"
)

var (
	summarizeQuantiles    string
	summarizeFormat       string
	summarizeMaxTreeDepth int
)

func newSummarizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <chain1.csv> [chain2.csv ...]",
		Short: "Summarize posterior draws from Stan CSV files",
		Long: `Build a posterior summary table from one or more Stan CSV files,
one file per chain.

With two or more chains, R-hat and effective sample size columns are
included in the table.`,
		Args: cobra.MinimumNArgs(1),
		RunE: summarizeCommandE,
	}

	cmd.Flags().StringVarP(&summarizeQuantiles, "quantiles", "q", "", "Comma-separated quantile levels (default: 0.025,0.25,0.5,0.75,0.975)")
	cmd.Flags().StringVarP(&summarizeFormat, "format", "f", "table", "Output format: table or json")
	cmd.Flags().IntVar(&summarizeMaxTreeDepth, "max-tree-depth", 0, "Tree depth limit used when reading sampler metadata (default: 10)")

	return cmd
}

func summarizeCommandE(cmd *cobra.Command, args []string) error {
	if summarizeFormat != "table" && summarizeFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", summarizeFormat)
	}

	levels, err := parseQuantileLevels(summarizeQuantiles)
	if err != nil {
		return err
	}

	ds, err := draws.LoadStanCSVs(args, draws.StanCSVOptions{MaxTreeDepth: summarizeMaxTreeDepth})
	if err != nil {
		return err
	}

	table, err := summary.Summarize(ds, levels)
	if err != nil {
		return err
	}

	var report *diagnostics.Report
	if ds.Chains() >= 2 {
		report, err = diagnostics.Compute(ds, diagnostics.Options{})
		if err != nil {
			return err
		}
		table.Attach(report)
	}

	if summarizeFormat == "json" {
		return printJSON(cmd.OutOrStdout(), table)
	}
	printSummaryTable(cmd.OutOrStdout(), table, report != nil)
	return nil
}
