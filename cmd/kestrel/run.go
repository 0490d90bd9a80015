package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrelci/kestrel/internal/artifact"
	"github.com/kestrelci/kestrel/internal/config"
	"github.com/kestrelci/kestrel/internal/docker"
	"github.com/kestrelci/kestrel/internal/exec"
	"github.com/kestrelci/kestrel/internal/runner"
	"github.com/kestrelci/kestrel/internal/state"
	"github.com/kestrelci/kestrel/internal/workflow"
	"github.com/kestrelci/kestrel/pkg/models"
)

var (
	runJobFilter   string
	runEvent       string
	runBranch      string
	runMaxParallel int
	runFailFast    bool
	runKeepGoing   bool
	runNoDocker    bool
	runUseTUI      bool
)

var runCmd = &cobra.Command{
	Use:   "run [workflow]",
	Short: "Run the workflow",
	Long: `Run the workflow: expand the matrix, order jobs by needs, and
execute every cell.

By default every job runs. Use --job to run one job and its transitive
needs. Use --event and --branch to simulate a trigger; the run is
skipped when the workflow's triggers do not match.

Fail-fast is on by default: the first failed cell in a job cancels its
remaining cells. Use --keep-going (or --fail-fast=false) to let every
cell finish.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkflow,
}

func init() {
	runCmd.Flags().StringVar(&runJobFilter, "job", "", "Run only this job and its needs")
	runCmd.Flags().StringVar(&runEvent, "event", "", "Simulate a trigger event (push, pull_request)")
	runCmd.Flags().StringVar(&runBranch, "branch", "", "Branch for trigger matching")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Override per-job cell concurrency")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", true, "Cancel a job's remaining cells after a failure")
	runCmd.Flags().BoolVar(&runKeepGoing, "keep-going", false, "Run every cell even after a failure")
	runCmd.Flags().BoolVar(&runNoDocker, "no-docker", false, "Run container jobs on the host")
	runCmd.Flags().BoolVar(&runUseTUI, "tui", false, "Show the live run view")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		workflowFile = args[0]
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	wf, path, err := loadWorkflow(cfg)
	if err != nil {
		return err
	}

	db, err := state.OpenProject(cwd)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader, err := artifact.NewUploader(cfg.Storage)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}
	if uploader != nil {
		if err := uploader.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
	}

	r := runner.New(runner.Options{
		Workspace:    cwd,
		WorkflowPath: path,
		Config:       cfg,
		Store:        db,
		Containers:   containerFactory(cfg),
		Uploader:     uploader,
		Event:        runEvent,
		Branch:       runBranch,
		Job:          runJobFilter,
		MaxParallel:  runMaxParallel,
		KeepGoing:    runKeepGoing || !runFailFast,
		NoDocker:     runNoDocker,
	})

	var run *models.Run
	if runUseTUI {
		run, err = runWithTUI(ctx, r, wf)
	} else {
		run, err = runWithReporter(ctx, r, wf, cfg.Output.Color)
	}
	if err != nil {
		return err
	}

	if dropped := r.DroppedEvents(); dropped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d events dropped\n", dropped)
	}
	switch run.Status {
	case models.StatusFailed:
		return fmt.Errorf("run %s failed", shortID(run.ID))
	case models.StatusCancelled:
		return fmt.Errorf("run %s cancelled", shortID(run.ID))
	}
	return nil
}

// containerFactory wires the Docker backend when it is enabled.
func containerFactory(cfg *config.Config) runner.ContainerRunnerFactory {
	if !cfg.Docker.Enabled {
		return nil
	}
	return func(image, workspace, runID string) (exec.CommandRunner, func() error, error) {
		dr, err := docker.NewRunner(image, workspace, runID, cfg.Docker.Host)
		if err != nil {
			return nil, nil, err
		}
		return dr, dr.Close, nil
	}
}

// runWithReporter runs the workflow with the plain-text reporter.
func runWithReporter(ctx context.Context, r *runner.Runner, wf *workflow.Workflow, colorEnabled bool) (*models.Run, error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		reportEvents(r.Events(), colorEnabled)
	}()
	run, err := r.Run(ctx, wf)
	<-done
	return run, err
}

// shortID returns the display prefix of a run identifier.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
