package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelci/kestrel/internal/artifact"
	"github.com/kestrelci/kestrel/internal/config"
	"github.com/kestrelci/kestrel/internal/exec"
	"github.com/kestrelci/kestrel/internal/matrix"
	"github.com/kestrelci/kestrel/internal/state"
	"github.com/kestrelci/kestrel/internal/workflow"
	"github.com/kestrelci/kestrel/pkg/models"
)

// eventBufferSize is the capacity of the event channel. When a consumer
// falls behind, events are dropped rather than stalling execution.
const eventBufferSize = 256

// ContainerRunnerFactory builds a CommandRunner that executes inside the
// given image with the workspace mounted. The returned closer releases
// any resources held by the runner.
type ContainerRunnerFactory func(image, workspace, runID string) (exec.CommandRunner, func() error, error)

// Options configures a Runner.
type Options struct {
	// Workspace is the project root commands run in.
	Workspace string
	// WorkflowPath is recorded on the run for history.
	WorkflowPath string

	Config *config.Config
	Store  state.Store
	// Host executes steps on the local machine.
	Host exec.CommandRunner
	// Containers builds per-job container runners. When nil, container
	// jobs fall back to the host with a warning.
	Containers ContainerRunnerFactory
	Artifacts  *artifact.Store
	Uploader   *artifact.Uploader

	// Event and Branch describe the simulated trigger. An empty Event
	// skips trigger matching and runs unconditionally.
	Event  string
	Branch string

	// Job restricts the run to one job and its transitive needs.
	Job string

	// MaxParallel overrides the per-job cell concurrency when > 0.
	MaxParallel int
	// KeepGoing disables fail-fast for every job.
	KeepGoing bool
	// NoDocker forces container jobs onto the host.
	NoDocker bool
}

// Runner executes a workflow: it expands matrices, walks the job graph,
// fans cells out across goroutines, and records everything to the store.
type Runner struct {
	opts    Options
	events  chan Event
	dropped atomic.Uint64
}

// New builds a Runner. Missing options get working defaults so tests can
// construct one from a zero Options with just a workspace.
func New(opts Options) *Runner {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Store == nil {
		opts.Store = state.NoopStore{}
	}
	if opts.Host == nil {
		opts.Host = exec.NewHostRunner()
	}
	if opts.Artifacts == nil {
		opts.Artifacts = artifact.NewStore(opts.Workspace)
	}
	return &Runner{
		opts:   opts,
		events: make(chan Event, eventBufferSize),
	}
}

// Events returns the event stream. It is closed when Run returns.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// DroppedEvents reports how many events were discarded because the
// consumer was not keeping up.
func (r *Runner) DroppedEvents() uint64 {
	return r.dropped.Load()
}

func (r *Runner) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case r.events <- ev:
	default:
		r.dropped.Add(1)
	}
}

// Run executes the workflow and returns its run record. A non-nil error
// means the run could not start; job and step failures are reported
// through the run status instead.
func (r *Runner) Run(ctx context.Context, wf *workflow.Workflow) (*models.Run, error) {
	defer close(r.events)

	now := time.Now()
	run := &models.Run{
		ID:           uuid.New().String(),
		Workflow:     wf.Name,
		WorkflowPath: r.opts.WorkflowPath,
		Event:        r.opts.Event,
		Branch:       r.opts.Branch,
		Status:       models.StatusRunning,
		StartedAt:    now,
	}

	if r.opts.Event != "" && !wf.Matches(r.opts.Event, r.opts.Branch) {
		run.Status = models.StatusSkipped
		finished := time.Now()
		run.FinishedAt = &finished
		if err := r.opts.Store.CreateRun(run); err != nil {
			return nil, fmt.Errorf("recording run: %w", err)
		}
		r.emit(Event{Type: EventRunFinished, RunID: run.ID, Status: run.Status,
			Message: fmt.Sprintf("no trigger for %s on %s", r.opts.Event, r.opts.Branch)})
		return run, nil
	}

	plan, err := BuildPlan(wf, r.opts.Job)
	if err != nil {
		return nil, err
	}
	if err := r.opts.Store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	r.emit(Event{Type: EventRunStarted, RunID: run.ID,
		Message: fmt.Sprintf("%d jobs, %d cells", len(plan.Jobs), plan.CellCount())})

	type jobResult struct {
		name   string
		status models.Status
	}
	results := make(chan jobResult)
	inFlight := 0

	for {
		for _, name := range plan.Graph.Ready() {
			pj := plan.Get(name)
			inFlight++
			go func(pj *PlannedJob) {
				results <- jobResult{pj.Job.Name, r.runJob(ctx, run, wf, pj)}
			}(pj)
		}
		if inFlight == 0 {
			break
		}

		res := <-results
		inFlight--
		if res.status.Gating() {
			for _, name := range plan.Graph.MarkFailed(res.name) {
				r.recordSkippedJob(run, plan.Get(name))
			}
		} else {
			plan.Graph.MarkDone(res.name)
		}
	}

	switch {
	case ctx.Err() != nil:
		run.Status = models.StatusCancelled
	case plan.Graph.Failed():
		run.Status = models.StatusFailed
	default:
		run.Status = models.StatusSuccess
	}
	finished := time.Now()
	run.FinishedAt = &finished
	if err := r.opts.Store.UpdateRun(run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	r.emit(Event{Type: EventRunFinished, RunID: run.ID, Status: run.Status,
		Duration: finished.Sub(run.StartedAt)})
	return run, nil
}

// recordSkippedJob persists one job_run per cell of a job that never ran
// because a dependency failed.
func (r *Runner) recordSkippedJob(run *models.Run, pj *PlannedJob) {
	if pj == nil {
		return
	}
	now := time.Now()
	for _, cell := range pj.Cells {
		jr := &models.JobRun{
			ID:         uuid.New().String(),
			RunID:      run.ID,
			Job:        pj.Job.Name,
			Cell:       cell.Name(),
			Matrix:     cell.Values,
			Status:     models.StatusSkipped,
			StartedAt:  now,
			FinishedAt: &now,
		}
		if err := r.opts.Store.CreateJobRun(jr); err != nil {
			r.emit(Event{Type: EventWarning, RunID: run.ID, Job: pj.Job.Name,
				Message: "recording skipped job", Err: err})
		}
		r.emit(Event{Type: EventJobSkipped, RunID: run.ID, Job: pj.Job.Name,
			Cell: cell.Name(), Status: models.StatusSkipped})
	}
}

// runJob fans a job's matrix cells out across goroutines, bounded by the
// effective max-parallel. With fail-fast, the first gating cell cancels
// the rest through the job context.
func (r *Runner) runJob(ctx context.Context, run *models.Run, wf *workflow.Workflow, pj *PlannedJob) models.Status {
	failFast := pj.Job.Strategy.FailFastEnabled() && !r.opts.KeepGoing

	limit := 0
	if pj.Job.Strategy != nil {
		limit = pj.Job.Strategy.MaxParallel
	}
	if r.opts.MaxParallel > 0 {
		limit = r.opts.MaxParallel
	}
	if limit <= 0 {
		limit = r.opts.Config.Defaults.MaxParallel
	}
	if limit <= 0 {
		limit = 1
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if pj.Job.TimeoutMinutes > 0 {
		var tcancel context.CancelFunc
		jobCtx, tcancel = context.WithTimeout(jobCtx, time.Duration(pj.Job.TimeoutMinutes)*time.Minute)
		defer tcancel()
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	status := models.StatusSuccess

	for _, cell := range pj.Cells {
		wg.Add(1)
		go func(cell *matrix.Cell) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			st := r.runCell(jobCtx, run, wf, pj.Job, cell)
			if st.Gating() {
				mu.Lock()
				status = models.StatusFailed
				mu.Unlock()
				if failFast {
					cancel()
				}
			}
		}(cell)
	}
	wg.Wait()

	if ctx.Err() != nil && status == models.StatusSuccess {
		return models.StatusCancelled
	}
	return status
}
