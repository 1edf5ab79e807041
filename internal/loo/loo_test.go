package loo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postcheck/postcheck/internal/draws"
)

// wellBehavedModel builds a pointwise log-likelihood whose importance ratios
// have a light tail.
func wellBehavedModel(t *testing.T, name string, nObs, nDraws int, seed int64) *PointwiseLogLik {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	values := make([][]float64, nObs)
	for i := range values {
		values[i] = make([]float64, nDraws)
		for j := range values[i] {
			values[i][j] = -1 + 0.1*rng.NormFloat64()
		}
	}
	return &PointwiseLogLik{Name: name, Values: values}
}

func TestPSISLOO_ConstantLogLik(t *testing.T) {
	values := make([][]float64, 3)
	for i := range values {
		values[i] = make([]float64, 100)
		for j := range values[i] {
			values[i][j] = -2.0
		}
	}

	est, err := PSISLOO(&PointwiseLogLik{Name: "m", Values: values})
	require.NoError(t, err)

	// Uniform weights: elpd_i reduces to the constant log-likelihood.
	for _, v := range est.Pointwise {
		assert.InDelta(t, -2.0, v, 1e-9)
	}
	assert.InDelta(t, -6.0, est.ELPD, 1e-9)
	assert.InDelta(t, 0.0, est.SE, 1e-9)
}

func TestPSISLOO_Validation(t *testing.T) {
	_, err := PSISLOO(&PointwiseLogLik{Name: "m"})
	assert.ErrorIs(t, err, ErrEmptyLogLik)

	_, err = PSISLOO(&PointwiseLogLik{Name: "m", Values: [][]float64{{}}})
	assert.ErrorIs(t, err, ErrEmptyLogLik)

	_, err = PSISLOO(&PointwiseLogLik{Name: "m", Values: [][]float64{{1, 2}, {1}}})
	assert.Error(t, err)
}

func TestPSISLOO_DominatingOutlierFlagged(t *testing.T) {
	// One observation whose importance ratios have a Pareto(1) tail: the
	// reported shape must exceed the reliability threshold.
	s := 1000
	heavy := make([]float64, s)
	for j := 0; j < s; j++ {
		u := (float64(j) + 0.5) / float64(s)
		heavy[j] = math.Log(1 - u) // ratio 1/(1-u) dominates as u -> 1
	}

	est, err := PSISLOO(&PointwiseLogLik{Name: "m", Values: [][]float64{heavy}})
	require.NoError(t, err)
	assert.Greater(t, est.KHats[0], 0.7)
}

func TestCompare_IdenticalModels(t *testing.T) {
	a := wellBehavedModel(t, "a", 10, 500, 42)
	b := &PointwiseLogLik{Name: "b", Values: a.Values}

	result, err := Compare([]*PointwiseLogLik{a, b}, Options{})
	require.NoError(t, err)
	require.Len(t, result.Models, 2)

	assert.Equal(t, 0.0, result.Models[1].ELPDDiff)
	assert.Equal(t, 0.0, result.Models[1].SEDiff)
	assert.Equal(t, result.Models[0].ELPD, result.Models[1].ELPD)
	// Ties keep input order.
	assert.Equal(t, "a", result.Models[0].Name)
	assert.Equal(t, 1, result.Models[0].Rank)
	assert.Equal(t, 2, result.Models[1].Rank)
}

func TestCompare_RanksByELPD(t *testing.T) {
	good := wellBehavedModel(t, "good", 10, 500, 1)
	bad := &PointwiseLogLik{Name: "bad", Values: make([][]float64, 10)}
	for i := range bad.Values {
		bad.Values[i] = make([]float64, 500)
		for j := range bad.Values[i] {
			bad.Values[i][j] = good.Values[i][j] - 3 // uniformly worse fit
		}
	}

	result, err := Compare([]*PointwiseLogLik{bad, good}, Options{})
	require.NoError(t, err)

	assert.Equal(t, "good", result.Models[0].Name)
	assert.Equal(t, "bad", result.Models[1].Name)
	assert.Less(t, result.Models[1].ELPDDiff, 0.0)
	assert.GreaterOrEqual(t, result.Models[1].SEDiff, 0.0)
}

func TestCompare_ObservationCountMismatch(t *testing.T) {
	a := wellBehavedModel(t, "a", 10, 100, 3)
	b := wellBehavedModel(t, "b", 8, 100, 4)

	_, err := Compare([]*PointwiseLogLik{a, b}, Options{})
	assert.ErrorIs(t, err, ErrObservationCountMismatch)
}

func TestCompare_TooFewModels(t *testing.T) {
	a := wellBehavedModel(t, "a", 5, 100, 3)
	_, err := Compare([]*PointwiseLogLik{a}, Options{})
	assert.ErrorIs(t, err, ErrTooFewModels)
}

func TestCompare_UnreliableObservationsReported(t *testing.T) {
	s := 1000
	heavy := make([]float64, s)
	light := make([]float64, s)
	rng := rand.New(rand.NewSource(8))
	for j := 0; j < s; j++ {
		u := (float64(j) + 0.5) / float64(s)
		heavy[j] = math.Log(1 - u)
		light[j] = -1 + 0.1*rng.NormFloat64()
	}

	a := &PointwiseLogLik{Name: "a", Values: [][]float64{heavy, light}}
	b := &PointwiseLogLik{Name: "b", Values: [][]float64{light, light}}

	result, err := Compare([]*PointwiseLogLik{a, b}, Options{})
	require.NoError(t, err)

	var modelA ModelResult
	for _, m := range result.Models {
		if m.Name == "a" {
			modelA = m
		}
	}
	assert.Contains(t, modelA.UnreliableObs, 0)
	assert.NotContains(t, modelA.UnreliableObs, 1)
	assert.Equal(t, DefaultKHatThreshold, result.KHatThreshold)
}

func TestFromDrawSet(t *testing.T) {
	c := &draws.Chain{Columns: []draws.Column{
		{Name: "theta", Values: []float64{0.1, 0.2}},
		{Name: "log_lik[1]", Values: []float64{-1.0, -1.1}},
		{Name: "log_lik[2]", Values: []float64{-2.0, -2.1}},
	}}
	ds, err := draws.New(c)
	require.NoError(t, err)

	p, err := FromDrawSet("m1", ds, LogLikParam)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Observations())
	assert.Equal(t, []float64{-1.0, -1.1}, p.Values[0])
	assert.Equal(t, []float64{-2.0, -2.1}, p.Values[1])

	_, err = FromDrawSet("m1", ds, "missing")
	assert.Error(t, err)
}
