// Package summary reduces a DrawSet to per-parameter point and interval
// estimates at configurable quantile levels.
package summary

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/draws"
)

// ErrEmptyDrawSet is returned when a summary is requested over zero draws.
var ErrEmptyDrawSet = errors.New("summary: draw set has no draws")

// DefaultQuantileLevels are the levels used when the caller supplies none.
var DefaultQuantileLevels = []float64{0.025, 0.25, 0.5, 0.75, 0.975}

// ParameterSummary is one row of the summary table: point and interval
// estimates for one flattened parameter, plus convergence indicators when a
// diagnostic report was attached.
type ParameterSummary struct {
	Name      string    `json:"name"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"std_dev"`
	Median    float64   `json:"median"`
	Levels    []float64 `json:"quantile_levels"`
	Quantiles []float64 `json:"quantiles"`
	RHat      float64   `json:"rhat,omitempty"`
	ESS       float64   `json:"ess,omitempty"`
}

// Table holds one ParameterSummary per flattened parameter, in the DrawSet's
// stored column order.
type Table struct {
	Levels []float64          `json:"quantile_levels"`
	Rows   []ParameterSummary `json:"rows"`
}

// Row returns the summary row for one flattened parameter name.
func (t *Table) Row(name string) (ParameterSummary, bool) {
	for _, r := range t.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return ParameterSummary{}, false
}

// Summarize builds a summary table over all parameters of a DrawSet. Vector
// parameters produce one row per element. Quantile levels must be strictly
// increasing in (0,1); nil selects DefaultQuantileLevels.
func Summarize(ds *draws.DrawSet, levels []float64) (*Table, error) {
	if ds.TotalDraws() == 0 {
		return nil, ErrEmptyDrawSet
	}
	if levels == nil {
		levels = DefaultQuantileLevels
	}
	if err := validateLevels(levels); err != nil {
		return nil, err
	}

	table := &Table{Levels: levels}
	for _, name := range ds.Elements() {
		merged, err := ds.Merged(name)
		if err != nil {
			return nil, err
		}
		row := summarizeValues(name, merged, levels)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Attach copies R-hat and ESS from a diagnostic report into matching rows.
func (t *Table) Attach(report *diagnostics.Report) {
	for i := range t.Rows {
		if pd, ok := report.Param(t.Rows[i].Name); ok {
			t.Rows[i].RHat = pd.RHat
			t.Rows[i].ESS = pd.ESS
		}
	}
}

func summarizeValues(name string, values, levels []float64) ParameterSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	qs := make([]float64, len(levels))
	for i, p := range levels {
		qs[i] = quantileSorted(sorted, p)
	}

	mu := mean(values)
	return ParameterSummary{
		Name:      name,
		Mean:      mu,
		StdDev:    stdDev(values, mu),
		Median:    quantileSorted(sorted, 0.5),
		Levels:    levels,
		Quantiles: qs,
	}
}

func validateLevels(levels []float64) error {
	if len(levels) == 0 {
		return fmt.Errorf("summary: at least one quantile level is required")
	}
	prev := 0.0
	for i, p := range levels {
		if p <= 0 || p >= 1 {
			return fmt.Errorf("summary: quantile level %g is outside (0,1)", p)
		}
		if i > 0 && p <= prev {
			return fmt.Errorf("summary: quantile levels must be strictly increasing, got %g after %g", p, prev)
		}
		prev = p
	}
	return nil
}

// Quantile computes the p-th quantile of values by linear interpolation
// between order statistics (Hyndman & Fan type 7): with n sorted values, the
// quantile sits at rank h = (n-1)p and interpolates between floor(h) and
// floor(h)+1. Deterministic given identical draws.
func Quantile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, p)
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev uses Bessel's correction, matching the convention printed by the
// usual posterior summary tools.
func stdDev(values []float64, mu float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
