package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/postcheck/postcheck/internal/models"
	"github.com/postcheck/postcheck/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive bool
	var name string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new analysis",
		Long: `Initialize a new analysis directory.

Creates an analysis.yaml spec file and a data/ directory with an example
CSV dataset. The generated spec uses the mock engine so the pipeline can
be exercised before a compiled model exists.

Use --interactive to run a guided wizard that collects the analysis
configuration.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive, name)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run guided analysis creation wizard")
	cmd.Flags().StringVar(&name, "name", "", "Analysis name (pre-populates the wizard)")

	return cmd
}

const exampleDataCSV = `drownings,year
134,1980
121,1981
118,1982
106,1983
129,1984
`

func initCommandE(cmd *cobra.Command, args []string, interactive bool, name string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	draft := &wizard.AnalysisDraft{
		Name:        "my-analysis",
		Description: "Describe the question this analysis answers.",
		Model:       "demo",
		Engine:      models.EngineMock,
		Seed:        42,
		Chains:      4,
		Iterations:  1000,
		Warmup:      1000,
	}
	if name != "" {
		draft.Name = name
	}

	if interactive {
		collected, err := wizard.RunAnalysisWizard(cmd.InOrStdin(), cmd.OutOrStdout(), draft.Name)
		if err != nil {
			return err
		}
		draft = collected
	}

	content, err := wizard.GenerateAnalysisYAML(draft)
	if err != nil {
		return fmt.Errorf("failed to generate analysis.yaml: %w", err)
	}

	specPath := filepath.Join(dir, "analysis.yaml")
	if err := os.WriteFile(specPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write analysis.yaml: %w", err)
	}

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	dataPath := filepath.Join(dataDir, "observations.csv")
	if err := os.WriteFile(dataPath, []byte(exampleDataCSV), 0o644); err != nil {
		return fmt.Errorf("failed to write example dataset: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Initialized analysis:")               //nolint:errcheck
	fmt.Fprintf(w, "  %s\n", specPath)                     //nolint:errcheck
	fmt.Fprintf(w, "  %s\n", dataPath)                     //nolint:errcheck
	fmt.Fprintln(w)                                        //nolint:errcheck
	fmt.Fprintf(w, "Next: postcheck run %s\n", specPath)   //nolint:errcheck

	return nil
}
