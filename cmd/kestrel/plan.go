package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/config"
	"github.com/kestrelci/kestrel/internal/runner"
)

var planJobFilter string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the expanded execution plan",
	Long: `Expand the workflow without running it.

Prints every job in execution order with its matrix cells, so you can
see exactly what 'kestrel run' would execute.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planJobFilter, "job", "", "Plan only this job and its needs")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	wf, _, err := loadWorkflow(cfg)
	if err != nil {
		return err
	}

	plan, err := runner.BuildPlan(wf, planJobFilter)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d jobs, %d cells\n\n", wf.Name, len(plan.Jobs), plan.CellCount())
	for _, name := range plan.Graph.Order() {
		pj := plan.Get(name)
		if pj == nil {
			continue
		}
		fmt.Printf("%s", name)
		if len(pj.Job.Needs) > 0 {
			fmt.Printf("  (needs: %s)", strings.Join(pj.Job.Needs, ", "))
		}
		fmt.Println()
		for _, cell := range pj.Cells {
			fmt.Printf("  %s\n", cell.Name())
		}
	}
	return nil
}
