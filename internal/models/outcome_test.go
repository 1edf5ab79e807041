package models

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postcheck/postcheck/internal/diagnostics"
)

func TestBuildDigest(t *testing.T) {
	report := &diagnostics.Report{
		Params: []diagnostics.ParamDiagnostics{
			{Name: "mu", RHat: 1.01, ESS: 850},
			{Name: "tau", RHat: 1.08, ESS: 420},
		},
		Divergences:    2,
		NeedsAttention: true,
	}

	digest := BuildDigest(4000, report, 1500*time.Millisecond)

	assert.Equal(t, 4000, digest.TotalDraws)
	assert.Equal(t, 2, digest.Parameters)
	assert.Equal(t, 2, digest.Divergences)
	assert.Equal(t, 1.08, digest.MaxRHat)
	assert.Equal(t, 420.0, digest.MinESS)
	assert.True(t, digest.NeedsAttention)
	assert.Equal(t, int64(1500), digest.DurationMs)
}

func TestBuildDigest_EmptyReport(t *testing.T) {
	digest := BuildDigest(0, &diagnostics.Report{}, 0)
	assert.Equal(t, 0.0, digest.MaxRHat)
	assert.Equal(t, 0.0, digest.MinESS)
}

func TestOutcomeRoundTrip(t *testing.T) {
	outcome := &AnalysisOutcome{
		Name:      "bernoulli",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Setup: OutcomeSetup{
			Engine:     EngineMock,
			Model:      "bernoulli",
			Seed:       42,
			Chains:     4,
			Iterations: 1000,
		},
		Digest: OutcomeDigest{TotalDraws: 4000, Parameters: 1, MaxRHat: 1.0, MinESS: 3800},
	}

	path := filepath.Join(t.TempDir(), "outcome.json")
	require.NoError(t, outcome.Save(path))

	back, err := LoadAnalysisOutcome(path)
	require.NoError(t, err)
	assert.Equal(t, outcome.Name, back.Name)
	assert.Equal(t, outcome.Setup, back.Setup)
	assert.Equal(t, outcome.Digest, back.Digest)
	assert.True(t, outcome.Timestamp.Equal(back.Timestamp))
}

func TestLoadAnalysisOutcome_Missing(t *testing.T) {
	_, err := LoadAnalysisOutcome(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
