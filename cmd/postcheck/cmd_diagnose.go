package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/draws"
	"github.com/postcheck/postcheck/internal/reporting"
)

var (
	diagnoseESSThreshold  float64
	diagnoseRHatThreshold float64
	diagnoseFormat        string
	diagnoseInterpret     bool
	diagnoseMaxTreeDepth  int
)

func newDiagnoseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose <chain1.csv> <chain2.csv> [chain3.csv ...]",
		Short: "Run convergence diagnostics over Stan CSV files",
		Long: `Compute R-hat, effective sample size, and divergence aggregates from
two or more Stan CSV files, one file per chain.

Poor sampling quality is reported in the output, not as a failure; the
command exits non-zero only when the files cannot be read.`,
		Args: cobra.MinimumNArgs(2),
		RunE: diagnoseCommandE,
	}

	cmd.Flags().Float64Var(&diagnoseESSThreshold, "ess-threshold", 0, "ESS below this flags a parameter (default: 400)")
	cmd.Flags().Float64Var(&diagnoseRHatThreshold, "rhat-threshold", 0, "R-hat above this flags a parameter (default: 1.1)")
	cmd.Flags().StringVarP(&diagnoseFormat, "format", "f", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&diagnoseInterpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().IntVar(&diagnoseMaxTreeDepth, "max-tree-depth", 0, "Tree depth limit used when reading sampler metadata (default: 10)")

	return cmd
}

func diagnoseCommandE(cmd *cobra.Command, args []string) error {
	if diagnoseFormat != "table" && diagnoseFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", diagnoseFormat)
	}

	ds, err := draws.LoadStanCSVs(args, draws.StanCSVOptions{MaxTreeDepth: diagnoseMaxTreeDepth})
	if err != nil {
		return err
	}

	report, err := diagnostics.Compute(ds, diagnostics.Options{
		ESSThreshold:  diagnoseESSThreshold,
		RHatThreshold: diagnoseRHatThreshold,
	})
	if err != nil {
		return err
	}

	if diagnoseFormat == "json" {
		return printJSON(cmd.OutOrStdout(), report)
	}

	printDiagnostics(cmd.OutOrStdout(), report)
	if diagnoseInterpret {
		fmt.Fprint(cmd.OutOrStdout(), reporting.FormatDiagnosticsReport(report, ds.TotalDraws())) //nolint:errcheck
	}
	return nil
}
