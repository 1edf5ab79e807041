package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postcheck/postcheck/internal/loo"
	"github.com/postcheck/postcheck/internal/models"
	"github.com/postcheck/postcheck/internal/reporting"
)

var (
	compareFormat        string
	compareKHatThreshold float64
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <outcome1.json> <outcome2.json> [outcome3.json ...]",
		Short: "Compare fitted models by predictive accuracy",
		Long: `Compare two or more analysis outcome files by leave-one-out predictive
accuracy (PSIS-LOO).

Each outcome file must carry a pointwise log-likelihood, which 'run'
includes when the analysis spec sets log_lik. All compared models must be
fit to the same observations.`,
		Args: cobra.MinimumNArgs(2),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareFormat, "format", "f", "table", "Output format: table or json")
	cmd.Flags().Float64Var(&compareKHatThreshold, "khat-threshold", 0, "Pareto shape above this flags an observation (default: 0.7)")

	return cmd
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	if compareFormat != "table" && compareFormat != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", compareFormat)
	}

	logLiks := make([]*loo.PointwiseLogLik, 0, len(args))
	for _, path := range args {
		outcome, err := models.LoadAnalysisOutcome(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		if outcome.LogLik == nil {
			return fmt.Errorf("%s carries no pointwise log-likelihood; rerun with log_lik set in the analysis spec", path)
		}
		ll := outcome.LogLik
		if outcome.Name != "" {
			ll.Name = outcome.Name
		}
		logLiks = append(logLiks, ll)
	}

	result, err := loo.Compare(logLiks, loo.Options{KHatThreshold: compareKHatThreshold})
	if err != nil {
		return err
	}

	if compareFormat == "json" {
		return printJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprint(cmd.OutOrStdout(), reporting.FormatComparisonReport(result)) //nolint:errcheck
	return nil
}
