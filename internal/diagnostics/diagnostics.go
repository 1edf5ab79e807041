// Package diagnostics computes convergence and efficiency indicators from a
// DrawSet: potential scale reduction (R-hat), autocorrelation-based effective
// sample size, and aggregates of the sampler's divergence and tree-depth
// metadata. Poor sampling quality is reported as data, never as an error.
package diagnostics

import (
	"errors"
	"fmt"
	"math"

	"github.com/postcheck/postcheck/internal/draws"
)

// ErrInsufficientChains is returned when R-hat is requested for a DrawSet
// with fewer than two chains.
var ErrInsufficientChains = errors.New("diagnostics: at least 2 chains are required")

// DefaultESSThreshold is the effective sample size below which a parameter
// is flagged for attention.
const DefaultESSThreshold = 400

// DefaultRHatThreshold is the R-hat value above which a parameter is flagged
// for attention.
const DefaultRHatThreshold = 1.1

// Options configures the attention thresholds. Zero values select defaults.
type Options struct {
	ESSThreshold  float64
	RHatThreshold float64
}

func (o Options) essThreshold() float64 {
	if o.ESSThreshold > 0 {
		return o.ESSThreshold
	}
	return DefaultESSThreshold
}

func (o Options) rhatThreshold() float64 {
	if o.RHatThreshold > 0 {
		return o.RHatThreshold
	}
	return DefaultRHatThreshold
}

// ParamDiagnostics holds per-parameter convergence indicators.
type ParamDiagnostics struct {
	Name string  `json:"name"`
	RHat float64 `json:"rhat"`
	ESS  float64 `json:"ess"`
}

// Report is the immutable diagnostic result for one DrawSet.
type Report struct {
	Params            []ParamDiagnostics `json:"parameters"`
	Divergences       int                `json:"divergences"`
	TreeDepthExceeded int                `json:"tree_depth_exceeded"`
	ESSThreshold      float64            `json:"ess_threshold"`
	RHatThreshold     float64            `json:"rhat_threshold"`
	NeedsAttention    bool               `json:"needs_attention"`
}

// Param returns the diagnostics for one flattened parameter name.
func (r *Report) Param(name string) (ParamDiagnostics, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDiagnostics{}, false
}

// Compute derives a diagnostic Report from a DrawSet. The DrawSet is not
// modified; divergence and tree-depth counts are pass-through aggregates of
// the sampler's per-iteration metadata.
func Compute(ds *draws.DrawSet, opts Options) (*Report, error) {
	if ds.Chains() < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrInsufficientChains, ds.Chains())
	}

	report := &Report{
		Divergences:       ds.DivergenceCount(),
		TreeDepthExceeded: ds.TreeDepthExceededCount(),
		ESSThreshold:      opts.essThreshold(),
		RHatThreshold:     opts.rhatThreshold(),
	}

	for _, name := range ds.Elements() {
		chains := make([][]float64, ds.Chains())
		for i := range chains {
			col, err := ds.Column(i, name)
			if err != nil {
				return nil, err
			}
			chains[i] = col
		}
		pd := ParamDiagnostics{
			Name: name,
			RHat: rhat(chains),
			ESS:  effectiveSampleSize(chains),
		}
		report.Params = append(report.Params, pd)
		if pd.RHat > report.RHatThreshold || pd.ESS < report.ESSThreshold {
			report.NeedsAttention = true
		}
	}

	if report.Divergences > 0 {
		report.NeedsAttention = true
	}

	return report, nil
}

// rhat computes the potential scale reduction factor comparing between- and
// within-chain variance (Gelman & Rubin). The variance ratio is floored at 1
// so chains in exact agreement report 1.0; a parameter that is constant in
// every chain also reports 1.0.
func rhat(chains [][]float64) float64 {
	m := len(chains)
	n := len(chains[0])
	if n < 2 {
		return math.NaN()
	}

	means := make([]float64, m)
	w := 0.0
	for i, c := range chains {
		means[i] = mean(c)
		w += sampleVariance(c, means[i])
	}
	w /= float64(m)

	grand := mean(means)
	b := 0.0
	for _, mu := range means {
		d := mu - grand
		b += d * d
	}
	b *= float64(n) / float64(m-1)

	varPlus := float64(n-1)/float64(n)*w + b/float64(n)

	if w == 0 {
		if b == 0 {
			return 1.0
		}
		return math.Inf(1)
	}

	r := math.Sqrt(varPlus / w)
	if r < 1 {
		r = 1
	}
	return r
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

// sampleVariance uses Bessel's correction.
func sampleVariance(values []float64, mu float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mu
		sumSq += d * d
	}
	return sumSq / float64(n-1)
}
