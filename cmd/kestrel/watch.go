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
	"github.com/kestrelci/kestrel/internal/runner"
	"github.com/kestrelci/kestrel/internal/state"
	"github.com/kestrelci/kestrel/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rerun the workflow on file changes",
	Long: `Watch the workspace and rerun the workflow whenever files change.

Changes are debounced so one save triggers one run. A change arriving
mid-run cancels the run in flight and starts a fresh one. Run state
and VCS directories are ignored.`,
	RunE: runWatchCmd,
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(cwd)
	if err != nil {
		return fmt.Errorf("watch workspace: %w", err)
	}
	defer w.Close()

	restart := make(chan struct{}, 1)
	go func() {
		_ = w.Run(ctx, func(changed []string) {
			fmt.Printf("\n%d files changed, rerunning\n", len(changed))
			select {
			case restart <- struct{}{}:
			default:
			}
		})
	}()

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := runOnce(runCtx, cwd); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}()

		rerun := false
		select {
		case <-restart:
			cancel()
			<-done
			rerun = true
		case <-done:
			cancel()
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		}

		if !rerun {
			select {
			case <-restart:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// runOnce loads the config and workflow fresh and executes one run with
// the plain reporter. Run failures print; only setup problems return.
func runOnce(ctx context.Context, cwd string) error {
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
		Job:          runJobFilter,
		MaxParallel:  runMaxParallel,
		KeepGoing:    runKeepGoing,
		NoDocker:     runNoDocker,
	})

	_, err = runWithReporter(ctx, r, wf, cfg.Output.Color)
	return err
}
