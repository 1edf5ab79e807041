package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/summary"
)

// printSummaryTable renders a posterior summary table. Quantile columns are
// labeled by their probability level; R-hat and ESS columns appear when a
// diagnostic report was attached.
//
//nolint:errcheck
func printSummaryTable(w io.Writer, table *summary.Table, withDiagnostics bool) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w, " POSTERIOR SUMMARY")
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-16s %10s %10s", "Parameter", "Mean", "StdDev")
	for _, p := range table.Levels {
		fmt.Fprintf(w, " %9s", levelLabel(p))
	}
	if withDiagnostics {
		fmt.Fprintf(w, " %8s %8s", "R-hat", "ESS")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, row := range table.Rows {
		fmt.Fprintf(w, "%-16s %10.4f %10.4f", row.Name, row.Mean, row.StdDev)
		for _, q := range row.Quantiles {
			fmt.Fprintf(w, " %9.4f", q)
		}
		if withDiagnostics {
			fmt.Fprintf(w, " %8.3f %8.0f", row.RHat, row.ESS)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

// levelLabel formats a probability level as a percentage column header.
func levelLabel(p float64) string {
	return strconv.FormatFloat(p*100, 'g', -1, 64) + "%"
}

// printDiagnostics renders the convergence report as a table plus the
// divergence and tree-depth aggregates.
//
//nolint:errcheck
func printDiagnostics(w io.Writer, report *diagnostics.Report) {
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w, " DIAGNOSTICS")
	fmt.Fprintln(w, "="+strings.Repeat("=", 60))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-16s %8s %8s\n", "Parameter", "R-hat", "ESS")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, p := range report.Params {
		icon := "✓"
		if p.RHat > report.RHatThreshold || p.ESS < report.ESSThreshold || math.IsNaN(p.RHat) {
			icon = "✗"
		}
		fmt.Fprintf(w, "%-16s %8.3f %8.0f  %s\n", p.Name, p.RHat, p.ESS, icon)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Divergences:         %d\n", report.Divergences)
	fmt.Fprintf(w, "Tree depth exceeded: %d\n", report.TreeDepthExceeded)
	if report.NeedsAttention {
		fmt.Fprintln(w, "Status:              ✗ needs attention")
	} else {
		fmt.Fprintln(w, "Status:              ✓ ok")
	}
	fmt.Fprintln(w)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseQuantileLevels parses a comma-separated list of probability levels.
// An empty string selects the defaults.
func parseQuantileLevels(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantile level %q", strings.TrimSpace(p))
		}
		levels = append(levels, v)
	}
	return levels, nil
}
