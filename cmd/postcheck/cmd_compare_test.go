package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postcheck/postcheck/internal/loo"
	"github.com/postcheck/postcheck/internal/models"
)

// writeOutcomeWithLogLik builds an outcome file whose log-likelihood is
// constant at ll for every observation and draw.
func writeOutcomeWithLogLik(t *testing.T, dir, name string, ll float64) string {
	t.Helper()

	const nObs, nDraws = 5, 40
	values := make([][]float64, nObs)
	for i := range values {
		row := make([]float64, nDraws)
		for j := range row {
			row[j] = ll
		}
		values[i] = row
	}

	outcome := &models.AnalysisOutcome{
		Name:      name,
		Timestamp: time.Now().UTC(),
		Setup:     models.OutcomeSetup{Engine: models.EngineMock, Model: name, Chains: 2, Iterations: 20},
		LogLik:    &loo.PointwiseLogLik{Name: name, Values: values},
	}
	path := filepath.Join(dir, name+".json")
	require.NoError(t, outcome.Save(path))
	return path
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	better := writeOutcomeWithLogLik(t, dir, "model-a", -1.0)
	worse := writeOutcomeWithLogLik(t, dir, "model-b", -2.0)

	cmd := newCompareCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{worse, better})

	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Best model: model-a")
	assert.Contains(t, out.String(), "1. model-a")
	assert.Contains(t, out.String(), "2. model-b")
}

func TestCompareCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	a := writeOutcomeWithLogLik(t, dir, "model-a", -1.0)
	b := writeOutcomeWithLogLik(t, dir, "model-b", -2.0)

	cmd := newCompareCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{a, b, "--format", "json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"khat_threshold": 0.7`)
	assert.Contains(t, out.String(), `"rank": 1`)
}

func TestCompareCommand_NoLogLik(t *testing.T) {
	dir := t.TempDir()
	outcome := &models.AnalysisOutcome{Name: "bare", Timestamp: time.Now().UTC()}
	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, outcome.Save(bare))
	other := writeOutcomeWithLogLik(t, dir, "model-a", -1.0)

	cmd := newCompareCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{bare, other})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_lik")
}

func TestCompareCommand_BadFormat(t *testing.T) {
	cmd := newCompareCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"a.json", "b.json", "--format", "xml"})

	require.Error(t, cmd.Execute())
}
