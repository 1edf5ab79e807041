package models

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/postcheck/postcheck/internal/diagnostics"
	"github.com/postcheck/postcheck/internal/loo"
	"github.com/postcheck/postcheck/internal/summary"
)

// AnalysisOutcome is the complete result of one analysis run, written as a
// JSON file so later invocations (and model comparisons) can consume it.
type AnalysisOutcome struct {
	Name        string              `json:"name"`
	Timestamp   time.Time           `json:"timestamp"`
	Setup       OutcomeSetup        `json:"config"`
	Digest      OutcomeDigest       `json:"summary"`
	Table       *summary.Table      `json:"table,omitempty"`
	Diagnostics *diagnostics.Report `json:"diagnostics,omitempty"`
	// LogLik carries the pointwise log-likelihood when the spec asked for
	// it, so outcome files can feed model comparison later.
	LogLik *loo.PointwiseLogLik `json:"log_lik,omitempty"`
}

// OutcomeSetup records how the run was configured.
type OutcomeSetup struct {
	Engine     string `json:"engine"`
	Model      string `json:"model"`
	Seed       int64  `json:"seed"`
	Chains     int    `json:"chains"`
	Iterations int    `json:"iterations"`
	Warmup     int    `json:"warmup"`
	Cached     bool   `json:"cached,omitempty"`
}

// OutcomeDigest condenses the run for quick reading.
type OutcomeDigest struct {
	TotalDraws        int     `json:"total_draws"`
	Parameters        int     `json:"parameters"`
	Divergences       int     `json:"divergences"`
	TreeDepthExceeded int     `json:"tree_depth_exceeded"`
	MaxRHat           float64 `json:"max_rhat"`
	MinESS            float64 `json:"min_ess"`
	NeedsAttention    bool    `json:"needs_attention"`
	DurationMs        int64   `json:"duration_ms"`
}

// BuildDigest condenses a diagnostic report into the outcome digest.
func BuildDigest(totalDraws int, report *diagnostics.Report, duration time.Duration) OutcomeDigest {
	d := OutcomeDigest{
		TotalDraws:        totalDraws,
		Parameters:        len(report.Params),
		Divergences:       report.Divergences,
		TreeDepthExceeded: report.TreeDepthExceeded,
		MaxRHat:           math.Inf(-1),
		MinESS:            math.Inf(1),
		NeedsAttention:    report.NeedsAttention,
		DurationMs:        duration.Milliseconds(),
	}
	for _, p := range report.Params {
		if p.RHat > d.MaxRHat {
			d.MaxRHat = p.RHat
		}
		if p.ESS < d.MinESS {
			d.MinESS = p.ESS
		}
	}
	if len(report.Params) == 0 {
		d.MaxRHat, d.MinESS = 0, 0
	}
	return d
}

// Save writes the outcome as indented JSON.
func (o *AnalysisOutcome) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// LoadAnalysisOutcome reads an outcome JSON file.
func LoadAnalysisOutcome(path string) (*AnalysisOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var outcome AnalysisOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, fmt.Errorf("parse outcome %s: %w", path, err)
	}
	return &outcome, nil
}
