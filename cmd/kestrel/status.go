package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/state"
	"github.com/kestrelci/kestrel/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run history",
	Long: `Display recorded runs from the project database.

Without arguments, lists recent runs. With a run ID (full or prefix),
shows that run's cells and steps.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Number of runs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Run 'kestrel run' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if len(args) == 1 {
		return showRun(db, args[0])
	}
	return listRuns(db)
}

func listRuns(db *state.DB) error {
	runs, err := db.ListRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Run 'kestrel run' to start.")
		return nil
	}

	fmt.Printf("%-10s %-20s %-10s %-10s %-20s %s\n", "RUN", "WORKFLOW", "EVENT", "STATUS", "STARTED", "DURATION")
	for _, r := range runs {
		event := r.Event
		if event == "" {
			event = "-"
		}
		c := statusColor(r.Status)
		c.Printf("%-10s %-20s %-10s %-10s %-20s %s\n",
			shortID(r.ID), r.Workflow, event, r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runDuration(&r))
	}
	return nil
}

func showRun(db *state.DB, id string) error {
	run, err := db.GetRun(id)
	if err != nil {
		return fmt.Errorf("get run %s: %w", id, err)
	}
	if run == nil {
		return fmt.Errorf("no run matching %q", id)
	}

	c := statusColor(run.Status)
	fmt.Printf("run %s  %s", shortID(run.ID), run.Workflow)
	if run.Event != "" {
		fmt.Printf("  (%s on %s)", run.Event, run.Branch)
	}
	fmt.Print("  ")
	c.Println(string(run.Status))

	jobs, err := db.ListJobRuns(run.ID)
	if err != nil {
		return fmt.Errorf("list job runs: %w", err)
	}
	for _, j := range jobs {
		jc := statusColor(j.Status)
		jc.Printf("%s %s %s\n", statusMark(j.Status), j.Cell, j.Status)
		if j.Error != "" {
			failedColor.Printf("  %s\n", j.Error)
		}

		steps, err := db.ListStepRuns(j.ID)
		if err != nil {
			return fmt.Errorf("list step runs: %w", err)
		}
		for _, s := range steps {
			sc := statusColor(s.Status)
			sc.Printf("  %s %s", statusMark(s.Status), s.Name)
			if s.Status == models.StatusFailed && s.ExitCode != 0 {
				fmt.Printf(" (exit %d)", s.ExitCode)
			}
			fmt.Println()
		}
	}
	return nil
}

func runDuration(r *models.Run) string {
	if r.FinishedAt == nil {
		return "running"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
