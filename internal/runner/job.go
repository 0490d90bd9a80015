package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelci/kestrel/internal/exec"
	"github.com/kestrelci/kestrel/internal/expr"
	"github.com/kestrelci/kestrel/internal/matrix"
	"github.com/kestrelci/kestrel/internal/workflow"
	"github.com/kestrelci/kestrel/pkg/models"
)

// runCell executes every step of one matrix cell and records the
// outcome. The returned status gates the job: failed and cancelled
// propagate, warning and success do not.
func (r *Runner) runCell(ctx context.Context, run *models.Run, wf *workflow.Workflow, job *workflow.Job, cell *matrix.Cell) models.Status {
	now := time.Now()
	jr := &models.JobRun{
		ID:        uuid.New().String(),
		RunID:     run.ID,
		Job:       job.Name,
		Cell:      cell.Name(),
		Matrix:    cell.Values,
		Status:    models.StatusRunning,
		StartedAt: now,
	}

	fail := func(err error) models.Status {
		jr.Status = models.StatusFailed
		if ctx.Err() != nil {
			jr.Status = models.StatusCancelled
		}
		jr.Error = err.Error()
		finished := time.Now()
		jr.FinishedAt = &finished
		if serr := r.opts.Store.CreateJobRun(jr); serr != nil {
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
				Message: "recording job", Err: serr})
		}
		r.emit(Event{Type: EventJobFinished, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
			Status: jr.Status, Err: err, Duration: finished.Sub(now)})
		return jr.Status
	}

	baseCtx := &expr.Context{Matrix: cell.Values, Job: job.Name, RunID: run.ID}

	wfEnv, err := expr.InterpolateMap(wf.Env, baseCtx)
	if err != nil {
		return fail(err)
	}
	envCtx := &expr.Context{Matrix: cell.Values, Env: wfEnv, Job: job.Name, RunID: run.ID}
	jobEnv, err := expr.InterpolateMap(job.Env, envCtx)
	if err != nil {
		return fail(err)
	}

	runsOn, err := expr.Interpolate(job.RunsOn, baseCtx)
	if err != nil {
		return fail(err)
	}
	jr.RunsOn = runsOn

	cr := r.opts.Host
	host := true
	var containerEnv map[string]string
	if job.Container != nil {
		image, err := expr.Interpolate(job.Container.Image, baseCtx)
		if err != nil {
			return fail(err)
		}
		containerEnv, err = expr.InterpolateMap(job.Container.Env, envCtx)
		if err != nil {
			return fail(err)
		}
		switch {
		case r.opts.NoDocker || !r.opts.Config.Docker.Enabled:
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
				Message: "container disabled, running " + image + " steps on host"})
		case r.opts.Containers == nil:
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
				Message: "no container backend, running " + image + " steps on host"})
		default:
			containerRunner, release, err := r.opts.Containers(image, r.opts.Workspace, run.ID)
			if err != nil {
				return fail(err)
			}
			defer func() {
				if rerr := release(); rerr != nil {
					r.emit(Event{Type: EventWarning, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
						Message: "releasing container", Err: rerr})
				}
			}()
			cr = containerRunner
			host = false
			jr.Container = image
		}
	}

	if err := r.opts.Store.CreateJobRun(jr); err != nil {
		r.emit(Event{Type: EventWarning, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
			Message: "recording job", Err: err})
	}
	r.emit(Event{Type: EventJobStarted, RunID: run.ID, Job: job.Name, Cell: jr.Cell, Status: models.StatusRunning})

	mergedEnv := overlay(wfEnv, jobEnv, containerEnv)
	runVars := map[string]string{
		"KESTREL_RUN_ID": run.ID,
		"KESTREL_JOB":    job.Name,
	}

	jr.Status = models.StatusSuccess
	for i := range job.Steps {
		st := r.runStep(ctx, run, jr, job.Steps[i], i, cr, host, mergedEnv, cell.Values, runVars)
		if st == models.StatusFailed || st == models.StatusCancelled {
			jr.Status = st
			// remaining steps are recorded as skipped
			r.recordSkippedSteps(run, jr, job, i+1)
			break
		}
		if st == models.StatusWarning && jr.Status == models.StatusSuccess {
			jr.Status = models.StatusWarning
		}
	}

	if !jr.Status.Gating() {
		r.collectArtifacts(ctx, run, wf, jr)
	}

	finished := time.Now()
	jr.FinishedAt = &finished
	if err := r.opts.Store.UpdateJobRun(jr); err != nil {
		r.emit(Event{Type: EventWarning, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
			Message: "recording job", Err: err})
	}
	r.emit(Event{Type: EventJobFinished, RunID: run.ID, Job: job.Name, Cell: jr.Cell,
		Status: jr.Status, Duration: finished.Sub(now)})
	return jr.Status
}

// runStep executes one step and persists its record. Gating failures
// return failed; continue-on-error failures return warning.
func (r *Runner) runStep(ctx context.Context, run *models.Run, jr *models.JobRun, step *workflow.Step, index int, cr exec.CommandRunner, host bool, mergedEnv, matrixValues, runVars map[string]string) models.Status {
	now := time.Now()
	sr := &models.StepRun{
		ID:        uuid.New().String(),
		JobRunID:  jr.ID,
		Index:     index,
		Name:      step.DisplayName(),
		Status:    models.StatusRunning,
		StartedAt: now,
	}

	if err := r.opts.Store.CreateStepRun(sr); err != nil {
		r.emit(Event{Type: EventWarning, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
			Message: "recording step", Err: err})
	}

	finish := func(st models.Status, exitCode int, err error) models.Status {
		sr.Status = st
		sr.ExitCode = exitCode
		finished := time.Now()
		sr.FinishedAt = &finished
		if serr := r.opts.Store.UpdateStepRun(sr); serr != nil {
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
				Message: "recording step", Err: serr})
		}
		r.emit(Event{Type: EventStepFinished, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
			Step: sr.Name, StepIndex: index, Status: st, Err: err, Duration: finished.Sub(now)})
		return st
	}

	script := step.Run
	if step.Uses != "" {
		mapped, ok := r.opts.Config.Actions[step.Uses]
		if !ok || mapped == "" {
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
				Step: sr.Name, Message: "no action mapping for " + step.Uses + ", skipping"})
			return finish(models.StatusWarning, 0, nil)
		}
		script = mapped
	}

	ectx := &expr.Context{Matrix: jr.Matrix, Env: mergedEnv, Job: jr.Job, RunID: run.ID}
	script, err := expr.Interpolate(script, ectx)
	if err != nil {
		return finish(models.StatusFailed, -1, err)
	}
	sr.Command = script

	stepEnv, err := expr.InterpolateMap(step.Env, ectx)
	if err != nil {
		return finish(models.StatusFailed, -1, err)
	}
	dir, err := expr.Interpolate(step.WorkingDirectory, ectx)
	if err != nil {
		return finish(models.StatusFailed, -1, err)
	}
	if host {
		if dir == "" {
			dir = r.opts.Workspace
		} else {
			dir = filepath.Join(r.opts.Workspace, dir)
		}
	}

	shell := step.Shell
	if shell == "" {
		shell = r.opts.Config.Defaults.Shell
	}
	if shell == "" {
		shell = "sh"
	}

	var base []string
	if host {
		base = os.Environ()
	}
	env := buildEnv(base, mergedEnv, stepEnv, matrixEnv(matrixValues), runVars)

	r.emit(Event{Type: EventStepStarted, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
		Step: sr.Name, StepIndex: index, Status: models.StatusRunning})

	stepCtx := ctx
	if step.TimeoutMinutes > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, time.Duration(step.TimeoutMinutes)*time.Minute)
		defer cancel()
	}

	tail := &tailBuffer{}
	proto := Event{RunID: run.ID, Job: jr.Job, Cell: jr.Cell, Step: sr.Name, StepIndex: index}
	stdout := newLineWriter(r, proto, false, tail)
	stderr := newLineWriter(r, proto, true, tail)

	exitCode, err := cr.Run(stepCtx, exec.Command{
		Shell:  shell,
		Script: script,
		Dir:    dir,
		Env:    env,
	}, stdout, stderr)
	stdout.Flush()
	stderr.Flush()
	sr.OutputTail = tail.String()

	switch {
	case ctx.Err() != nil:
		return finish(models.StatusCancelled, exitCode, ctx.Err())
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return finish(models.StatusFailed, exitCode, errors.New("step timed out"))
	case err != nil:
		return finish(models.StatusFailed, exitCode, err)
	case exitCode != 0 && step.ContinueOnError:
		return finish(models.StatusWarning, exitCode, nil)
	case exitCode != 0:
		return finish(models.StatusFailed, exitCode, nil)
	}
	return finish(models.StatusSuccess, 0, nil)
}

// recordSkippedSteps persists step records for steps after a gating
// failure so run history shows the full step list.
func (r *Runner) recordSkippedSteps(run *models.Run, jr *models.JobRun, job *workflow.Job, from int) {
	now := time.Now()
	for i := from; i < len(job.Steps); i++ {
		sr := &models.StepRun{
			ID:         uuid.New().String(),
			JobRunID:   jr.ID,
			Index:      i,
			Name:       job.Steps[i].DisplayName(),
			Status:     models.StatusSkipped,
			StartedAt:  now,
			FinishedAt: &now,
		}
		if err := r.opts.Store.CreateStepRun(sr); err != nil {
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
				Message: "recording step", Err: err})
		}
	}
}

// collectArtifacts gathers declared artifacts from the workspace and
// uploads them when object storage is configured. Collection problems
// warn; they never fail a cell that built successfully.
func (r *Runner) collectArtifacts(ctx context.Context, run *models.Run, wf *workflow.Workflow, jr *models.JobRun) {
	for _, a := range wf.Artifacts {
		collected, err := r.opts.Artifacts.Collect(run.ID, jr.Cell, a.Name, a.Path)
		if err != nil {
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
				Message: "collecting artifact " + a.Name, Err: err})
			continue
		}
		if r.opts.Uploader == nil {
			continue
		}
		for _, c := range collected {
			if err := r.opts.Uploader.Upload(ctx, run.ID, jr.Cell, c); err != nil {
				r.emit(Event{Type: EventWarning, RunID: run.ID, Job: jr.Job, Cell: jr.Cell,
					Message: "uploading artifact " + c.Source, Err: err})
			}
		}
	}
}

// overlay merges maps left to right, later keys winning.
func overlay(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
