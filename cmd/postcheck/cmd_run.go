package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/postcheck/postcheck/internal/cache"
	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/draws"
	"github.com/postcheck/postcheck/internal/loo"
	"github.com/postcheck/postcheck/internal/models"
	"github.com/postcheck/postcheck/internal/reporting"
	"github.com/postcheck/postcheck/internal/sampler"
	"github.com/postcheck/postcheck/internal/summary"
	"github.com/postcheck/postcheck/internal/validation"
)

var (
	runOutputPath string
	runInterpret  bool
	enableCache   bool
	runCacheDir   string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <analysis.yaml>",
		Short: "Run an analysis end to end",
		Long: `Run an analysis from a spec file: sample the posterior, compute
convergence diagnostics, and print the summary table.

The spec file defines the model, its data, the sampling configuration, and
the summary settings. Relative data and model paths are resolved against
the spec file's directory.

Exits with code 1 when the diagnostics flag the run for attention.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "Output JSON file for the analysis outcome")
	cmd.Flags().BoolVar(&runInterpret, "interpret", false, "Print a plain-language interpretation of the diagnostics")
	cmd.Flags().BoolVar(&enableCache, "cache", false, "Enable draw caching (default: false)")
	cmd.Flags().StringVar(&runCacheDir, "cache-dir", ".postcheck-cache", "Cache directory for storing draws")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	specPath := args[0]

	// Schema validation first, so misconfigured files fail with field-level
	// messages instead of a decode error.
	schemaErrs, err := validation.ValidateAnalysisFile(specPath)
	if err != nil {
		return err
	}
	if len(schemaErrs) > 0 {
		for _, e := range schemaErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e) //nolint:errcheck
		}
		return fmt.Errorf("%s failed schema validation with %d error(s)", specPath, len(schemaErrs))
	}

	spec, err := models.LoadAnalysisSpec(specPath)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}

	// Resolve relative paths against the spec directory.
	specDir := filepath.Dir(specPath)
	if spec.DataFile != "" && !filepath.IsAbs(spec.DataFile) {
		spec.DataFile = filepath.Join(specDir, spec.DataFile)
	}
	model := spec.Model
	if spec.Engine == models.EngineStan && !filepath.IsAbs(model) {
		model = filepath.Join(specDir, model)
	}

	data, err := spec.ResolveData()
	if err != nil {
		return fmt.Errorf("failed to resolve data: %w", err)
	}

	var drawCache *cache.Cache
	var cacheKey string
	if enableCache {
		absCacheDir, err := filepath.Abs(runCacheDir)
		if err != nil {
			return fmt.Errorf("resolving cache directory: %w", err)
		}
		drawCache = cache.New(absCacheDir)
		cacheKey, err = cache.Key(model, data, spec.Seed, spec.Chains, spec.Iterations, spec.Warmup)
		if err != nil {
			return fmt.Errorf("computing cache key: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running analysis: %s\n", spec.Name) //nolint:errcheck
	if spec.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", spec.Description) //nolint:errcheck
	}
	fmt.Fprintf(out, "Engine: %s\n", spec.Engine) //nolint:errcheck
	fmt.Fprintf(out, "Model: %s\n", spec.Model)   //nolint:errcheck
	fmt.Fprintf(out, "Chains: %d x %d iterations (warmup %d, seed %d)\n", spec.Chains, spec.Iterations, spec.Warmup, spec.Seed) //nolint:errcheck
	fmt.Fprintln(out) //nolint:errcheck

	start := time.Now()
	ds, cached, err := sampleDraws(cmd.Context(), spec, model, data, drawCache, cacheKey)
	if err != nil {
		return err
	}
	duration := time.Since(start)
	if cached {
		fmt.Fprintln(out, "Draws loaded from cache.") //nolint:errcheck
		fmt.Fprintln(out)                             //nolint:errcheck
	}

	// Single-chain runs cannot support R-hat; diagnostics are skipped and
	// the summary table carries no convergence columns.
	var report *diagnostics.Report
	if ds.Chains() >= 2 {
		report, err = diagnostics.Compute(ds, diagnostics.Options{ESSThreshold: spec.ESSThreshold})
		if err != nil {
			return fmt.Errorf("computing diagnostics: %w", err)
		}
	}

	table, err := summary.Summarize(ds, spec.QuantileLevels)
	if err != nil {
		return fmt.Errorf("building summary: %w", err)
	}
	if report != nil {
		table.Attach(report)
	}

	printSummaryTable(out, table, report != nil)
	if report != nil {
		printDiagnostics(out, report)
		if runInterpret {
			fmt.Fprint(out, reporting.FormatDiagnosticsReport(report, ds.TotalDraws())) //nolint:errcheck
		}
	}

	if runOutputPath != "" {
		outcome := buildOutcome(cmd.OutOrStdout(), spec, ds, table, report, cached, duration)
		if err := outcome.Save(runOutputPath); err != nil {
			return fmt.Errorf("failed to save output: %w", err)
		}
		fmt.Fprintf(out, "Results saved to: %s\n", runOutputPath) //nolint:errcheck
	}

	if report != nil && report.NeedsAttention {
		return &AttentionError{
			Message: fmt.Sprintf("analysis %s needs attention: %s", spec.Name, attentionSummary(report)),
		}
	}

	return nil
}

// sampleDraws produces the DrawSet for a spec, consulting the cache first.
func sampleDraws(ctx context.Context, spec *models.AnalysisSpec, model string, data map[string]any, drawCache *cache.Cache, cacheKey string) (*draws.DrawSet, bool, error) {
	if drawCache != nil {
		if ds, ok := drawCache.Get(cacheKey); ok {
			return ds, true, nil
		}
	}

	var engine sampler.Engine
	maxTreeDepth := 0

	switch spec.Engine {
	case models.EngineMock:
		engine = sampler.NewMockEngine(nil)
	case models.EngineStan:
		opts, err := spec.StanOptions()
		if err != nil {
			return nil, false, err
		}
		maxTreeDepth = opts.MaxTreeDepth
		engine = sampler.NewStanEngine()
	default:
		return nil, false, fmt.Errorf("unknown engine type: %s", spec.Engine)
	}

	if err := engine.Initialize(ctx); err != nil {
		return nil, false, fmt.Errorf("initializing engine: %w", err)
	}
	defer engine.Shutdown(ctx) //nolint:errcheck

	ds, err := engine.Sample(ctx, &sampler.SampleRequest{
		Model:        model,
		Data:         data,
		Seed:         spec.Seed,
		Chains:       spec.Chains,
		Iterations:   spec.Iterations,
		Warmup:       spec.Warmup,
		MaxTreeDepth: maxTreeDepth,
	})
	if err != nil {
		return nil, false, err
	}

	if drawCache != nil {
		if err := drawCache.Put(cacheKey, ds); err != nil {
			return nil, false, fmt.Errorf("caching draws: %w", err)
		}
	}
	return ds, false, nil
}

// buildOutcome assembles the outcome file payload for one run.
func buildOutcome(out io.Writer, spec *models.AnalysisSpec, ds *draws.DrawSet, table *summary.Table, report *diagnostics.Report, cached bool, duration time.Duration) *models.AnalysisOutcome {
	outcome := &models.AnalysisOutcome{
		Name:      spec.Name,
		Timestamp: time.Now().UTC(),
		Setup: models.OutcomeSetup{
			Engine:     spec.Engine,
			Model:      spec.Model,
			Seed:       spec.Seed,
			Chains:     spec.Chains,
			Iterations: spec.Iterations,
			Warmup:     spec.Warmup,
			Cached:     cached,
		},
		Table:       table,
		Diagnostics: report,
	}
	if report != nil {
		outcome.Digest = models.BuildDigest(ds.TotalDraws(), report, duration)
	} else {
		outcome.Digest = models.OutcomeDigest{
			TotalDraws: ds.TotalDraws(),
			Parameters: len(table.Rows),
			DurationMs: duration.Milliseconds(),
		}
	}

	if spec.LogLik != "" {
		if ll, err := loo.FromDrawSet(spec.Name, ds, spec.LogLik); err == nil {
			outcome.LogLik = ll
		} else {
			fmt.Fprintf(out, "Note: %v; outcome will not support model comparison\n", err) //nolint:errcheck
		}
	}
	return outcome
}

// attentionSummary condenses the reasons a report was flagged.
func attentionSummary(report *diagnostics.Report) string {
	var reasons []string
	if report.Divergences > 0 {
		reasons = append(reasons, fmt.Sprintf("%d divergences", report.Divergences))
	}
	flagged := 0
	for _, p := range report.Params {
		if p.RHat > report.RHatThreshold || p.ESS < report.ESSThreshold {
			flagged++
		}
	}
	if flagged > 0 {
		reasons = append(reasons, fmt.Sprintf("%d parameter(s) with poor R-hat or ESS", flagged))
	}
	if len(reasons) == 0 {
		return "diagnostics flagged the run"
	}
	return strings.Join(reasons, ", ")
}
