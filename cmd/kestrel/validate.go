package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the workflow file",
	Long: `Parse the workflow and report every problem it contains.

Validation checks job and step structure, needs references, matrix
axes, and trigger definitions. All problems are reported at once.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	wf, path, err := loadWorkflow(cfg)
	if err != nil {
		return err
	}
	if err := wf.Validate(); err != nil {
		return fmt.Errorf("%s is invalid:\n%w", path, err)
	}

	fmt.Printf("%s is valid: %d jobs\n", path, len(wf.Jobs))
	return nil
}
