// Package sampler defines the boundary to the external MCMC engine. The
// pipeline treats sampling as a single blocking call returning a complete
// DrawSet; engine failures surface verbatim, wrapped in ErrSamplingFailed.
package sampler

import (
	"context"
	"errors"
	"fmt"

	"github.com/postcheck/postcheck/internal/draws"
)

// ErrSamplingFailed wraps any engine-reported failure. It is not recoverable
// locally; callers decide what to do with it.
var ErrSamplingFailed = errors.New("sampler: sampling failed")

// Engine is the capability interface for a posterior sampling engine.
type Engine interface {
	// Initialize sets up the engine.
	Initialize(ctx context.Context) error

	// Sample runs the engine and returns the complete DrawSet.
	Sample(ctx context.Context, req *SampleRequest) (*draws.DrawSet, error)

	// Shutdown cleans up resources.
	Shutdown(ctx context.Context) error
}

// SampleRequest describes one sampling run.
type SampleRequest struct {
	// Model is an opaque reference to the probabilistic model definition.
	// The CmdStan engine reads it as the path to a compiled model binary.
	Model string
	// Data maps named model inputs to scalars, vectors, or matrices.
	Data map[string]any
	// Seed makes the run reproducible.
	Seed int64
	// Chains is the number of independent chains.
	Chains int
	// Iterations is the number of post-warmup draws per chain.
	Iterations int
	// Warmup is the number of warmup iterations per chain.
	Warmup int
	// MaxTreeDepth is the NUTS tree depth limit; zero means the engine
	// default.
	MaxTreeDepth int
}

func (r *SampleRequest) validate() error {
	if r.Model == "" {
		return fmt.Errorf("sampler: model reference is required")
	}
	if r.Chains < 1 {
		return fmt.Errorf("sampler: at least 1 chain is required, got %d", r.Chains)
	}
	if r.Iterations < 1 {
		return fmt.Errorf("sampler: at least 1 iteration is required, got %d", r.Iterations)
	}
	if r.Warmup < 0 {
		return fmt.Errorf("sampler: warmup must be >= 0, got %d", r.Warmup)
	}
	return nil
}

func (r *SampleRequest) maxTreeDepth() int {
	if r.MaxTreeDepth > 0 {
		return r.MaxTreeDepth
	}
	return draws.DefaultMaxTreeDepth
}
