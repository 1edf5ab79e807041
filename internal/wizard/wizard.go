// Package wizard collects the fields of a starter analysis.yaml through an
// interactive form.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/postcheck/postcheck/internal/models"
)

// AnalysisDraft holds all fields collected during the interactive wizard.
type AnalysisDraft struct {
	Name        string
	Description string
	Model       string
	Engine      string
	Seed        int64
	Chains      int
	Iterations  int
	Warmup      int
}

const analysisYAMLTemplate = `name: {{ .Name }}
{{- if .Description }}
description: {{ .Description }}
{{- end }}
model: {{ .Model }}
engine: {{ .Engine }}
seed: {{ .Seed }}
chains: {{ .Chains }}
iterations: {{ .Iterations }}
warmup: {{ .Warmup }}

# Provide the model data inline, or point data_file at a JSON/YAML data
# block, or at a CSV file together with a columns mapping:
#
# data:
#   N: 10
#   y: [0, 1, 0, 0, 1, 1, 0, 1, 1, 1]
#
# data_file: observations.csv
# columns:
#   y: drownings
#   x: year
# count_name: N

# quantile_levels: [0.025, 0.25, 0.5, 0.75, 0.975]
# log_lik: log_lik
`

// RunAnalysisWizard runs an interactive huh form to collect analysis
// metadata. If initialName is non-empty, it pre-populates the name field.
func RunAnalysisWizard(in io.Reader, out io.Writer, initialName string) (*AnalysisDraft, error) {
	var (
		name       = initialName
		desc       string
		model      string
		engine     string
		seed       = "42"
		chains     = "4"
		iterations = "1000"
		warmup     = "1000"
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Analysis name").
				Description("A short name for this analysis").
				Placeholder("my-analysis").
				Value(&name).
				Validate(requireNonEmpty("name")),
			huh.NewInput().
				Title("Description").
				Description("What question does this analysis answer?").
				Placeholder("Describe your analysis").
				Value(&desc),
			huh.NewSelect[string]().
				Title("Engine").
				Options(
					huh.NewOption("stan (compiled CmdStan model)", models.EngineStan),
					huh.NewOption("mock (deterministic, for pipelines and tests)", models.EngineMock),
				).
				Value(&engine),
			huh.NewInput().
				Title("Model").
				Description("Path to the compiled model binary (any label for the mock engine)").
				Placeholder("./models/bernoulli").
				Value(&model).
				Validate(requireNonEmpty("model")),
			huh.NewInput().
				Title("Seed").
				Value(&seed).
				Validate(requireInt("seed", 0)),
			huh.NewInput().
				Title("Chains").
				Value(&chains).
				Validate(requireInt("chains", 1)),
			huh.NewInput().
				Title("Iterations").
				Description("Post-warmup iterations per chain").
				Value(&iterations).
				Validate(requireInt("iterations", 1)),
			huh.NewInput().
				Title("Warmup").
				Value(&warmup).
				Validate(requireInt("warmup", 0)),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	seedVal, _ := strconv.ParseInt(strings.TrimSpace(seed), 10, 64)
	chainsVal, _ := strconv.Atoi(strings.TrimSpace(chains))
	iterationsVal, _ := strconv.Atoi(strings.TrimSpace(iterations))
	warmupVal, _ := strconv.Atoi(strings.TrimSpace(warmup))

	return &AnalysisDraft{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(desc),
		Model:       strings.TrimSpace(model),
		Engine:      engine,
		Seed:        seedVal,
		Chains:      chainsVal,
		Iterations:  iterationsVal,
		Warmup:      warmupVal,
	}, nil
}

// GenerateAnalysisYAML renders a starter analysis.yaml from the draft.
func GenerateAnalysisYAML(draft *AnalysisDraft) (string, error) {
	tmpl, err := template.New("analysis").Parse(analysisYAMLTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, draft); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func requireNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func requireInt(field string, min int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be an integer", field)
		}
		if v < min {
			return fmt.Errorf("%s must be at least %d", field, min)
		}
		return nil
	}
}
