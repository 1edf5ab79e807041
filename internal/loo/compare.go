package loo

import (
	"errors"
	"fmt"
	"sort"
)

// ErrObservationCountMismatch is returned when compared models were not fit
// to the same observations.
var ErrObservationCountMismatch = errors.New("loo: models have different observation counts")

// ErrTooFewModels is returned when fewer than two models are compared.
var ErrTooFewModels = errors.New("loo: at least 2 models are required")

// DefaultKHatThreshold is the Pareto shape above which a per-observation
// estimate is flagged unreliable.
const DefaultKHatThreshold = 0.7

// Options configures a model comparison. Zero values select defaults.
type Options struct {
	KHatThreshold float64
}

func (o Options) khatThreshold() float64 {
	if o.KHatThreshold > 0 {
		return o.KHatThreshold
	}
	return DefaultKHatThreshold
}

// ModelResult is one model's row in a comparison, ranked best first.
type ModelResult struct {
	Name string  `json:"name"`
	Rank int     `json:"rank"`
	ELPD float64 `json:"elpd"`
	SE   float64 `json:"se"`
	// ELPDDiff and SEDiff are relative to the top-ranked model; both are
	// zero for the top-ranked model itself. SEDiff is the standard error of
	// the pairwise per-observation differences, which is the scale to
	// read ELPDDiff against.
	ELPDDiff float64 `json:"elpd_diff"`
	SEDiff   float64 `json:"se_diff"`
	// UnreliableObs lists observation indices whose Pareto shape exceeded
	// the reliability threshold.
	UnreliableObs []int     `json:"unreliable_obs,omitempty"`
	KHats         []float64 `json:"khats"`
	Pointwise     []float64 `json:"pointwise"`
}

// Result is a ranked model comparison.
type Result struct {
	KHatThreshold float64       `json:"khat_threshold"`
	Models        []ModelResult `json:"models"`
}

// Compare runs PSIS-LOO on two or more models fit to the same observations
// and ranks them by expected log predictive density. Ties keep input order.
func Compare(models []*PointwiseLogLik, opts Options) (*Result, error) {
	if len(models) < 2 {
		return nil, fmt.Errorf("%w, got %d", ErrTooFewModels, len(models))
	}

	nObs := models[0].Observations()
	for i, m := range models[1:] {
		if m.Observations() != nObs {
			return nil, fmt.Errorf("%w: model %q has %d, model %q has %d",
				ErrObservationCountMismatch, models[0].Name, nObs, m.Name, models[i+1].Observations())
		}
	}

	threshold := Options{KHatThreshold: opts.khatThreshold()}.KHatThreshold
	result := &Result{KHatThreshold: threshold}

	for _, m := range models {
		est, err := PSISLOO(m)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.Name, err)
		}
		mr := ModelResult{
			Name:      m.Name,
			ELPD:      est.ELPD,
			SE:        est.SE,
			KHats:     est.KHats,
			Pointwise: est.Pointwise,
		}
		for i, k := range est.KHats {
			if k > threshold {
				mr.UnreliableObs = append(mr.UnreliableObs, i)
			}
		}
		result.Models = append(result.Models, mr)
	}

	sort.SliceStable(result.Models, func(a, b int) bool {
		return result.Models[a].ELPD > result.Models[b].ELPD
	})

	best := result.Models[0]
	for i := range result.Models {
		result.Models[i].Rank = i + 1
		if i == 0 {
			continue
		}
		m := &result.Models[i]
		m.ELPDDiff = m.ELPD - best.ELPD
		m.SEDiff = pairwiseDiffSE(m.Pointwise, best.Pointwise)
	}

	return result, nil
}

// pairwiseDiffSE is the standard error of the summed per-observation elpd
// differences between two models.
func pairwiseDiffSE(a, b []float64) float64 {
	diffs := make([]float64, len(a))
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	return pointwiseSE(diffs)
}
