// Package loo estimates leave-one-out predictive accuracy from per-draw,
// per-observation log-likelihoods using Pareto-smoothed importance sampling,
// and compares fitted models by expected log predictive density.
package loo

import (
	"errors"
	"fmt"
	"math"

	"github.com/postcheck/postcheck/internal/draws"
)

// ErrEmptyLogLik is returned when a model carries no observations or draws.
var ErrEmptyLogLik = errors.New("loo: pointwise log-likelihood is empty")

// LogLikParam is the conventional name of the pointwise log-likelihood
// vector in a model's draws.
const LogLikParam = "log_lik"

// PointwiseLogLik is one fitted model's per-observation, per-draw
// log-likelihood matrix: Values[i][s] = log p(y_i | theta_s), draws merged
// across chains in stored chain order.
type PointwiseLogLik struct {
	Name   string      `json:"name"`
	Values [][]float64 `json:"values"`
}

// Observations returns the observation count.
func (p *PointwiseLogLik) Observations() int { return len(p.Values) }

func (p *PointwiseLogLik) validate() error {
	if len(p.Values) == 0 {
		return ErrEmptyLogLik
	}
	s := len(p.Values[0])
	if s == 0 {
		return ErrEmptyLogLik
	}
	for i, row := range p.Values {
		if len(row) != s {
			return fmt.Errorf("loo: observation %d has %d draws, expected %d", i, len(row), s)
		}
	}
	return nil
}

// FromDrawSet extracts a model's pointwise log-likelihood from its draws,
// reading the vector parameter named base ("log_lik" by convention).
func FromDrawSet(name string, ds *draws.DrawSet, base string) (*PointwiseLogLik, error) {
	elements := ds.VectorElements(base)
	if len(elements) == 0 {
		return nil, fmt.Errorf("loo: draws carry no %q parameter", base)
	}
	values := make([][]float64, len(elements))
	for i, el := range elements {
		merged, err := ds.Merged(el)
		if err != nil {
			return nil, err
		}
		values[i] = merged
	}
	return &PointwiseLogLik{Name: name, Values: values}, nil
}

// Estimate is the PSIS-LOO result for one model.
type Estimate struct {
	// ELPD is the expected log pointwise predictive density summed over
	// observations.
	ELPD float64 `json:"elpd"`
	// SE is the standard error of ELPD.
	SE float64 `json:"se"`
	// Pointwise holds the per-observation elpd contributions.
	Pointwise []float64 `json:"pointwise"`
	// KHats holds the per-observation Pareto shape diagnostics. Values above
	// the reliability threshold mark estimates that cannot be trusted.
	KHats []float64 `json:"khats"`
}

// PSISLOO computes the leave-one-out predictive density estimate for one
// model. For each observation the importance ratios 1/p(y_i|theta_s) have
// their largest values smoothed by a generalized Pareto fit before the
// weighted predictive density is assembled.
func PSISLOO(p *PointwiseLogLik) (*Estimate, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	n := len(p.Values)
	est := &Estimate{
		Pointwise: make([]float64, n),
		KHats:     make([]float64, n),
	}

	s := len(p.Values[0])
	logWeights := make([]float64, s)
	weighted := make([]float64, s)

	for i, ll := range p.Values {
		// Raw log importance ratios for leaving out observation i.
		for j, v := range ll {
			logWeights[j] = -v
		}
		est.KHats[i] = smoothTail(logWeights)

		// Normalize, then combine with the log-likelihood.
		norm := logSumExp(logWeights)
		for j := range logWeights {
			weighted[j] = ll[j] + logWeights[j] - norm
		}
		est.Pointwise[i] = logSumExp(weighted)
		est.ELPD += est.Pointwise[i]
	}

	est.SE = pointwiseSE(est.Pointwise)
	return est, nil
}

// pointwiseSE is sqrt(n * sample variance) of the per-observation values.
func pointwiseSE(pointwise []float64) float64 {
	n := len(pointwise)
	if n < 2 {
		return 0
	}
	mu := 0.0
	for _, v := range pointwise {
		mu += v
	}
	mu /= float64(n)
	sumSq := 0.0
	for _, v := range pointwise {
		d := v - mu
		sumSq += d * d
	}
	return math.Sqrt(float64(n) * sumSq / float64(n-1))
}
