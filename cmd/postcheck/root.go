package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postcheck",
		Short: "Postcheck - posterior summaries and diagnostics for MCMC output",
		Long: `Postcheck is a command-line tool for summarizing and diagnosing
posterior draws from MCMC samplers.

It runs sampling through a pluggable engine, computes convergence
diagnostics (R-hat, effective sample size, divergences), builds posterior
summary tables, and compares fitted models by leave-one-out predictive
accuracy.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newSummarizeCommand())
	cmd.AddCommand(newDiagnoseCommand())
	cmd.AddCommand(newCompareCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newInitCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
