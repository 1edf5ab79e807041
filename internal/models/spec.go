package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/postcheck/postcheck/internal/dataset"
)

// Engine identifiers accepted in an analysis spec.
const (
	EngineStan = "stan"
	EngineMock = "mock"
)

// AnalysisSpec describes one complete analysis: the model, its data, the
// sampling configuration, and the post-sampling summary settings.
type AnalysisSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Model is an opaque reference handed to the engine; for the stan
	// engine it is the path to a compiled model binary.
	Model  string `yaml:"model"`
	Engine string `yaml:"engine"`
	// EngineOptions carries engine-specific settings (e.g. max_tree_depth).
	EngineOptions map[string]any `yaml:"engine_options,omitempty"`

	Seed       int64 `yaml:"seed"`
	Chains     int   `yaml:"chains"`
	Iterations int   `yaml:"iterations"`
	Warmup     int   `yaml:"warmup,omitempty"`

	// Data is an inline data block. DataFile points at a JSON/YAML data
	// block or, together with Columns, at a CSV dataset.
	Data     map[string]any    `yaml:"data,omitempty"`
	DataFile string            `yaml:"data_file,omitempty"`
	Columns  map[string]string `yaml:"columns,omitempty"`
	// CountName, when set with Columns, adds the CSV row count to the data
	// block under that name (Stan's usual "N").
	CountName string `yaml:"count_name,omitempty"`

	QuantileLevels []float64 `yaml:"quantile_levels,omitempty"`
	ESSThreshold   float64   `yaml:"ess_threshold,omitempty"`

	// LogLik names the pointwise log-likelihood parameter to carry into the
	// outcome file for later model comparison. Empty means none.
	LogLik string `yaml:"log_lik,omitempty"`
}

// StanOptions are the engine_options understood by the stan engine.
type StanOptions struct {
	MaxTreeDepth int `mapstructure:"max_tree_depth"`
}

// LoadAnalysisSpec loads a spec from a YAML file.
func LoadAnalysisSpec(path string) (*AnalysisSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec AnalysisSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks that the spec is valid.
func (s *AnalysisSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.Engine != EngineStan && s.Engine != EngineMock {
		return fmt.Errorf("engine must be %q or %q, got %q", EngineStan, EngineMock, s.Engine)
	}
	if s.Chains < 1 {
		return fmt.Errorf("chains must be at least 1, got %d", s.Chains)
	}
	if s.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", s.Iterations)
	}
	if s.Warmup < 0 {
		return fmt.Errorf("warmup must be >= 0, got %d", s.Warmup)
	}
	if s.Data != nil && s.DataFile != "" {
		return fmt.Errorf("data and data_file are mutually exclusive")
	}
	if len(s.Columns) > 0 && s.DataFile == "" {
		return fmt.Errorf("columns requires data_file")
	}
	return nil
}

// StanOptions decodes the engine_options block for the stan engine.
func (s *AnalysisSpec) StanOptions() (StanOptions, error) {
	var opts StanOptions
	if s.EngineOptions == nil {
		return opts, nil
	}
	if err := dataset.Decode(s.EngineOptions, &opts); err != nil {
		return opts, fmt.Errorf("engine_options: %w", err)
	}
	return opts, nil
}

// ResolveData assembles the model data block from whichever source the spec
// configures: inline data, a JSON/YAML data file, or CSV columns.
func (s *AnalysisSpec) ResolveData() (map[string]any, error) {
	switch {
	case s.Data != nil:
		return s.Data, nil
	case s.DataFile != "" && len(s.Columns) > 0:
		return dataset.FromCSV(s.DataFile, s.Columns, s.CountName)
	case s.DataFile != "":
		return dataset.LoadDataBlock(s.DataFile)
	default:
		return map[string]any{}, nil
	}
}
