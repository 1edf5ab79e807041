package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/postcheck/postcheck/internal/models"
	"github.com/postcheck/postcheck/internal/validation"
)

var checkFormat string

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <analysis.yaml>",
		Short: "Check an analysis spec before running it",
		Long: `Check an analysis spec file without sampling.

Validates the file against the analysis schema, then applies the semantic
checks the run command would (engine enum, chain and iteration counts,
data source exclusivity).`,
		Args: cobra.ExactArgs(1),
		RunE: checkCommandE,
	}

	cmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

// checkJSONReport is the JSON shape of a check run.
type checkJSONReport struct {
	Timestamp    string   `json:"timestamp"`
	Path         string   `json:"path"`
	Valid        bool     `json:"valid"`
	SchemaErrors []string `json:"schema_errors,omitempty"`
	SpecError    string   `json:"spec_error,omitempty"`
}

func checkCommandE(cmd *cobra.Command, args []string) error {
	if checkFormat != "text" && checkFormat != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", checkFormat)
	}

	path := args[0]
	report := checkJSONReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      path,
	}

	schemaErrs, err := validation.ValidateAnalysisFile(path)
	if err != nil {
		return err
	}
	report.SchemaErrors = schemaErrs

	// Semantic checks only make sense on a schema-valid file.
	if len(schemaErrs) == 0 {
		if _, err := models.LoadAnalysisSpec(path); err != nil {
			report.SpecError = err.Error()
		}
	}
	report.Valid = len(report.SchemaErrors) == 0 && report.SpecError == ""

	if checkFormat == "json" {
		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printCheckReport(cmd, report)
	}

	if !report.Valid {
		return fmt.Errorf("%s is not a valid analysis spec", path)
	}
	return nil
}

//nolint:errcheck
func printCheckReport(cmd *cobra.Command, report checkJSONReport) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Checking: %s\n\n", report.Path)

	if len(report.SchemaErrors) > 0 {
		fmt.Fprintf(w, "Schema: ✗ %d error(s)\n", len(report.SchemaErrors))
		for _, e := range report.SchemaErrors {
			fmt.Fprintf(w, "   %s\n", e)
		}
	} else {
		fmt.Fprintln(w, "Schema: ✓ valid")
	}

	if report.SpecError != "" {
		fmt.Fprintf(w, "Spec:   ✗ %s\n", report.SpecError)
	} else if len(report.SchemaErrors) == 0 {
		fmt.Fprintln(w, "Spec:   ✓ valid")
	}

	fmt.Fprintln(w)
	if report.Valid {
		fmt.Fprintln(w, "✓ Ready to run.")
	} else {
		fmt.Fprintln(w, "✗ Fix the errors above before running.")
	}
}
