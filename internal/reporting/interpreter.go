// Package reporting turns diagnostic and comparison results into
// plain-language text for the terminal.
package reporting

import (
	"fmt"
	"math"
	"strings"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/loo"
)

// InterpretRHat returns a plain-language label for a convergence diagnostic.
func InterpretRHat(rhat float64) string {
	switch {
	case math.IsNaN(rhat):
		return "Not computable (too few draws)"
	case math.IsInf(rhat, 1):
		return "Chains did not mix at all"
	case rhat <= 1.01:
		return "Converged (<=1.01)"
	case rhat <= 1.1:
		return "Acceptable (<=1.1)"
	default:
		return fmt.Sprintf("Not converged (%.2f > 1.1) - run longer or reparameterize", rhat)
	}
}

// InterpretESS returns a human-readable explanation of an effective sample
// size against the configured threshold.
func InterpretESS(ess, threshold float64) string {
	switch {
	case math.IsNaN(ess):
		return "Not computable (too few draws)"
	case ess >= threshold:
		return fmt.Sprintf("Sufficient (%.0f >= %.0f)", ess, threshold)
	case ess >= threshold/2:
		return fmt.Sprintf("Marginal (%.0f < %.0f) - estimates are usable but noisy", ess, threshold)
	default:
		return fmt.Sprintf("Too low (%.0f < %.0f) - posterior estimates are unreliable", ess, threshold)
	}
}

// InterpretDivergences explains what divergent transitions mean for the run.
func InterpretDivergences(count, totalDraws int) string {
	if count == 0 {
		return "No divergent transitions."
	}
	pct := 0.0
	if totalDraws > 0 {
		pct = float64(count) / float64(totalDraws) * 100
	}
	return fmt.Sprintf("%d divergent transitions (%.1f%% of draws). The sampler could not follow the posterior geometry; results may be biased. Consider a smaller step size or a reparameterization.", count, pct)
}

// InterpretKHat returns a plain-language label for a Pareto shape estimate.
func InterpretKHat(khat float64) string {
	switch {
	case math.IsInf(khat, -1):
		return "Degenerate importance weights (flat tail)"
	case khat <= 0.5:
		return "Reliable (<=0.5)"
	case khat <= 0.7:
		return "Acceptable (<=0.7)"
	case math.IsInf(khat, 1):
		return "Unreliable - tail too short or degenerate to estimate"
	default:
		return fmt.Sprintf("Unreliable (%.2f > 0.7) - importance weights too heavy-tailed", khat)
	}
}

// FormatDiagnosticsReport produces a full plain-language report from a
// diagnostic report.
func FormatDiagnosticsReport(report *diagnostics.Report, totalDraws int) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")

	if report.NeedsAttention {
		b.WriteString("This run NEEDS ATTENTION before its estimates can be trusted.\n\n")
	} else {
		b.WriteString("No convergence problems detected.\n\n")
	}

	b.WriteString(fmt.Sprintf("Divergences:   %s\n", InterpretDivergences(report.Divergences, totalDraws)))
	if report.TreeDepthExceeded > 0 {
		b.WriteString(fmt.Sprintf("Tree depth:    %d draws hit the maximum tree depth; sampling is inefficient but not biased.\n", report.TreeDepthExceeded))
	}

	if len(report.Params) > 0 {
		b.WriteString("\nPer-Parameter Interpretation:\n")
		for _, p := range report.Params {
			icon := "✓"
			if p.RHat > report.RHatThreshold || p.ESS < report.ESSThreshold || math.IsNaN(p.RHat) {
				icon = "✗"
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", icon, p.Name))
			b.WriteString(fmt.Sprintf("    R-hat: %.3f - %s\n", p.RHat, InterpretRHat(p.RHat)))
			b.WriteString(fmt.Sprintf("    ESS:   %s\n", InterpretESS(p.ESS, report.ESSThreshold)))
		}
	}

	return b.String()
}

// FormatComparisonReport produces a plain-language report from a model
// comparison result. Models are already ranked best first.
func FormatComparisonReport(result *loo.Result) string {
	var b strings.Builder

	b.WriteString("=== Model Comparison ===\n\n")

	best := result.Models[0]
	b.WriteString(fmt.Sprintf("Best model: %s (elpd %.1f ± %.1f)\n\n", best.Name, best.ELPD, best.SE))

	for _, m := range result.Models {
		b.WriteString(fmt.Sprintf("%d. %s\n", m.Rank, m.Name))
		b.WriteString(fmt.Sprintf("   elpd: %.1f (se %.1f)\n", m.ELPD, m.SE))
		if m.Rank > 1 {
			b.WriteString(fmt.Sprintf("   vs best: %.1f (se %.1f) - %s\n", m.ELPDDiff, m.SEDiff, interpretELPDDiff(m.ELPDDiff, m.SEDiff)))
		}
		if len(m.UnreliableObs) > 0 {
			b.WriteString(fmt.Sprintf("   warning: %d observations with k-hat > %.1f; their elpd contributions are unreliable\n", len(m.UnreliableObs), result.KHatThreshold))
		}
	}

	return b.String()
}

// interpretELPDDiff reads an elpd difference against its standard error.
func interpretELPDDiff(diff, se float64) string {
	if se == 0 {
		if diff == 0 {
			return "indistinguishable from the best model"
		}
		return "worse than the best model"
	}
	z := math.Abs(diff) / se
	switch {
	case z < 1:
		return "indistinguishable from the best model (difference within one se)"
	case z < 2:
		return "slightly worse than the best model"
	default:
		return "clearly worse than the best model"
	}
}
