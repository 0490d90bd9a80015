package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/config"
	"github.com/kestrelci/kestrel/internal/workflow"
)

var workflowFile string

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Local CI workflow runner",
	Long: `Kestrel runs CI workflows on your machine before you push.

Workflows are YAML files describing jobs, matrix builds, and ordered
shell steps. Kestrel expands the matrix, orders jobs by their needs,
runs cells in parallel, and records every run in a local database.

Core capabilities:
- Matrix expansion across OS images and runtime versions
- Job dependency ordering with fail-fast cancellation
- Advisory steps that warn without gating the run
- Container jobs via the Docker engine
- Artifact collection with optional object-storage upload`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workflowFile, "file", "f", "", "Workflow file (defaults to the configured workflow)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadWorkflow resolves the workflow path from the -f flag or the
// configured default and parses it.
func loadWorkflow(cfg *config.Config) (*workflow.Workflow, string, error) {
	path := workflowFile
	if path == "" {
		path = cfg.Defaults.Workflow
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("no workflow at %s: %w", path, err)
	}
	wf, err := workflow.Load(path)
	if err != nil {
		return nil, "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return wf, abs, nil
}
