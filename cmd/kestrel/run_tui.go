package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kestrelci/kestrel/internal/runner"
	"github.com/kestrelci/kestrel/internal/tui"
	"github.com/kestrelci/kestrel/internal/workflow"
	"github.com/kestrelci/kestrel/pkg/models"
)

// runWithTUI runs the workflow behind the live run view.
func runWithTUI(ctx context.Context, r *runner.Runner, wf *workflow.Workflow) (run *models.Run, retErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			retErr = fmt.Errorf("panic in live view: %v", rec)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program, _ := tui.NewProgram()

	// Forward runner events to the TUI for as long as the run emits them.
	go forwardEventsToTUI(program, r.Events())

	runDone := make(chan error, 1)
	go func() {
		var err error
		run, err = r.Run(ctx, wf)
		runDone <- err
	}()

	tuiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case err := <-runDone:
		if err != nil {
			program.Send(tui.RunDoneMsg{Status: models.StatusFailed, Message: err.Error()})
		} else {
			program.Send(tui.RunDoneMsg{Status: run.Status, Message: "run " + string(run.Status)})
		}
		// Leave the final board up until the user quits.
		<-tuiDone
		return run, err

	case err := <-tuiDone:
		// User quit mid-run; cancel the run and let it wind down.
		cancel()
		runErr := <-runDone
		if err == nil {
			err = runErr
		}
		return run, err
	}
}

// forwardEventsToTUI converts runner events to TUI messages.
func forwardEventsToTUI(program *tea.Program, events <-chan runner.Event) {
	for event := range events {
		errStr := ""
		if event.Err != nil {
			errStr = event.Err.Error()
		}
		program.Send(tui.RunnerEventMsg{
			Type:      string(event.Type),
			RunID:     event.RunID,
			Job:       event.Job,
			Cell:      event.Cell,
			Step:      event.Step,
			Status:    event.Status,
			Line:      event.Line,
			Stderr:    event.Stderr,
			Message:   event.Message,
			Error:     errStr,
			Duration:  event.Duration,
			Timestamp: event.Timestamp,
		})
	}
}
