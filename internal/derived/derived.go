// Package derived applies user functions pointwise over the joint draws of a
// DrawSet, e.g. indicators, ratios, and differences of parameters. Posterior
// probabilities come out as exact fractions of matching draws, never as a
// further approximation.
package derived

import (
	"errors"

	"github.com/postcheck/postcheck/internal/draws"
)

// ErrEmptyDrawSet is returned when a derived quantity is requested over zero
// draws.
var ErrEmptyDrawSet = errors.New("derived: draw set has no draws")

// Func maps one iteration's full flattened parameter mapping to a scalar.
type Func func(draw map[string]float64) float64

// Predicate maps one iteration's full flattened parameter mapping to a
// boolean, for probability queries.
type Predicate func(draw map[string]float64) bool

// Evaluate applies fn to every draw, preserving draw order within each chain
// and concatenating chains in stored chain order.
func Evaluate(ds *draws.DrawSet, fn Func) ([]float64, error) {
	if ds.TotalDraws() == 0 {
		return nil, ErrEmptyDrawSet
	}
	out := make([]float64, 0, ds.TotalDraws())
	for c := 0; c < ds.Chains(); c++ {
		for i := 0; i < ds.Iterations(); i++ {
			draw, err := ds.Iteration(c, i)
			if err != nil {
				return nil, err
			}
			out = append(out, fn(draw))
		}
	}
	return out, nil
}

// Probability returns the exact fraction of draws satisfying pred: the count
// of matching draws over the total draw count.
func Probability(ds *draws.DrawSet, pred Predicate) (float64, error) {
	indicator, err := Evaluate(ds, func(draw map[string]float64) float64 {
		if pred(draw) {
			return 1
		}
		return 0
	})
	if err != nil {
		return 0, err
	}
	count := 0.0
	for _, v := range indicator {
		count += v
	}
	return count / float64(len(indicator)), nil
}
