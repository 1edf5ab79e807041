package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/draws"
)

func singleChainSet(t *testing.T, cols ...draws.Column) *draws.DrawSet {
	t.Helper()
	ds, err := draws.New(&draws.Chain{Columns: cols})
	require.NoError(t, err)
	return ds
}

func TestQuantile_MedianLinearInterpolation(t *testing.T) {
	got := Quantile([]float64{1, 2, 3, 4}, 0.5)
	assert.Equal(t, 2.5, got)
}

func TestQuantile_Conventions(t *testing.T) {
	values := []float64{4, 1, 3, 2} // unsorted on purpose

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1.0, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(values, tt.p), 1e-12, "p=%g", tt.p)
	}

	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.5))
}

func TestSummarize_Basics(t *testing.T) {
	ds := singleChainSet(t, draws.Column{Name: "theta", Values: []float64{1, 2, 3, 4}})

	table, err := Summarize(ds, []float64{0.5})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, "theta", row.Name)
	assert.Equal(t, 2.5, row.Mean)
	assert.Equal(t, 2.5, row.Median)
	assert.Equal(t, []float64{2.5}, row.Quantiles)
	assert.InDelta(t, 1.2909944, row.StdDev, 1e-6)
}

func TestSummarize_QuantilesNonDecreasing(t *testing.T) {
	ds := singleChainSet(t, draws.Column{
		Name:   "theta",
		Values: []float64{0.3, -1.2, 4.5, 0.0, 2.2, 2.2, -0.7, 1.1},
	})

	levels := []float64{0.05, 0.25, 0.5, 0.75, 0.95}
	table, err := Summarize(ds, levels)
	require.NoError(t, err)

	qs := table.Rows[0].Quantiles
	require.Len(t, qs, len(levels))
	for i := 1; i < len(qs); i++ {
		assert.GreaterOrEqual(t, qs[i], qs[i-1])
	}
}

func TestSummarize_VectorParameterOneRowPerElement(t *testing.T) {
	ds := singleChainSet(t,
		draws.Column{Name: "beta[1]", Values: []float64{1, 1, 1}},
		draws.Column{Name: "beta[2]", Values: []float64{2, 2, 2}},
	)

	table, err := Summarize(ds, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "beta[1]", table.Rows[0].Name)
	assert.Equal(t, "beta[2]", table.Rows[1].Name)
	assert.Equal(t, 1.0, table.Rows[0].Mean)
	assert.Equal(t, 2.0, table.Rows[1].Mean)
}

func TestSummarize_DefaultLevels(t *testing.T) {
	ds := singleChainSet(t, draws.Column{Name: "theta", Values: []float64{1, 2, 3, 4}})

	table, err := Summarize(ds, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultQuantileLevels, table.Levels)
	assert.Len(t, table.Rows[0].Quantiles, len(DefaultQuantileLevels))
}

func TestSummarize_InvalidLevels(t *testing.T) {
	ds := singleChainSet(t, draws.Column{Name: "theta", Values: []float64{1, 2}})

	cases := [][]float64{
		{},
		{0.0},
		{1.0},
		{-0.1},
		{0.5, 0.5},
		{0.75, 0.25},
	}
	for _, levels := range cases {
		_, err := Summarize(ds, levels)
		assert.Error(t, err, "levels=%v", levels)
	}
}

func TestSummarize_MergesChainsInStoredOrder(t *testing.T) {
	c1 := &draws.Chain{Columns: []draws.Column{{Name: "theta", Values: []float64{1, 2}}}}
	c2 := &draws.Chain{Columns: []draws.Column{{Name: "theta", Values: []float64{3, 4}}}}
	ds, err := draws.New(c1, c2)
	require.NoError(t, err)

	table, err := Summarize(ds, []float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, 2.5, table.Rows[0].Median)
}

func TestAttach_CopiesDiagnostics(t *testing.T) {
	c1 := &draws.Chain{Columns: []draws.Column{{Name: "theta", Values: []float64{1, 2, 3, 4}}}}
	c2 := &draws.Chain{Columns: []draws.Column{{Name: "theta", Values: []float64{1, 2, 3, 4}}}}
	ds, err := draws.New(c1, c2)
	require.NoError(t, err)

	table, err := Summarize(ds, nil)
	require.NoError(t, err)

	report, err := diagnostics.Compute(ds, diagnostics.Options{})
	require.NoError(t, err)
	table.Attach(report)

	row, ok := table.Row("theta")
	require.True(t, ok)
	assert.Equal(t, 1.0, row.RHat)
	assert.Greater(t, row.ESS, 0.0)
}
