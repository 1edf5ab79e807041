package sampler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/postcheck/postcheck/internal/draws"
)

// StanEngine runs a compiled CmdStan model binary, one subprocess per chain.
// Chain subprocesses run in parallel; from the caller's perspective Sample is
// still one blocking call returning a complete DrawSet.
type StanEngine struct {
	workDir string
}

// NewStanEngine creates a CmdStan engine. Workspaces are created per Sample
// call and removed on Shutdown.
func NewStanEngine() *StanEngine {
	return &StanEngine{}
}

func (e *StanEngine) Initialize(ctx context.Context) error {
	return nil
}

func (e *StanEngine) Sample(ctx context.Context, req *SampleRequest) (*draws.DrawSet, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.Model); err != nil {
		return nil, fmt.Errorf("sampler: model binary %s: %w", req.Model, err)
	}

	// Clean up any previous workspace before creating a new one.
	if e.workDir != "" {
		if err := os.RemoveAll(e.workDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove old sampler workspace %s: %v\n", e.workDir, err)
		}
		e.workDir = ""
	}
	workDir, err := os.MkdirTemp("", "postcheck-stan-*")
	if err != nil {
		return nil, fmt.Errorf("sampler: create workspace: %w", err)
	}
	e.workDir = workDir

	dataPath := filepath.Join(workDir, "data.json")
	if err := writeStanData(dataPath, req.Data); err != nil {
		return nil, err
	}

	outputs := make([]string, req.Chains)
	g, gctx := errgroup.WithContext(ctx)
	for chain := 0; chain < req.Chains; chain++ {
		outputs[chain] = filepath.Join(workDir, fmt.Sprintf("output_%d.csv", chain+1))
		g.Go(e.runChain(gctx, req, chain+1, dataPath, outputs[chain]))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds, err := draws.LoadStanCSVs(outputs, draws.StanCSVOptions{MaxTreeDepth: req.maxTreeDepth()})
	if err != nil {
		return nil, fmt.Errorf("%w: reading engine output: %v", ErrSamplingFailed, err)
	}
	return ds, nil
}

func (e *StanEngine) runChain(ctx context.Context, req *SampleRequest, chainID int, dataPath, outputPath string) func() error {
	return func() error {
		args := []string{
			"sample",
			fmt.Sprintf("num_samples=%d", req.Iterations),
			fmt.Sprintf("num_warmup=%d", req.Warmup),
			"algorithm=hmc", "engine=nuts",
			fmt.Sprintf("max_depth=%d", req.maxTreeDepth()),
			"random", fmt.Sprintf("seed=%d", req.Seed),
			fmt.Sprintf("id=%d", chainID),
			"data", fmt.Sprintf("file=%s", dataPath),
			"output", fmt.Sprintf("file=%s", outputPath),
		}

		cmd := exec.CommandContext(ctx, req.Model, args...)
		var stderr strings.Builder
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return fmt.Errorf("%w: chain %d: %s", ErrSamplingFailed, chainID, msg)
		}
		return nil
	}
}

func (e *StanEngine) Shutdown(ctx context.Context) error {
	if e.workDir != "" {
		if err := os.RemoveAll(e.workDir); err != nil {
			return fmt.Errorf("sampler: remove workspace %s: %w", e.workDir, err)
		}
		e.workDir = ""
	}
	return nil
}

// writeStanData serializes a data block in Stan's JSON input format: a flat
// object of named scalars, vectors, and matrices.
func writeStanData(path string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sampler: encode data block: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("sampler: write data block: %w", err)
	}
	return nil
}
