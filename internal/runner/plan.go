package runner

import (
	"fmt"

	"github.com/kestrelci/kestrel/internal/graph"
	"github.com/kestrelci/kestrel/internal/matrix"
	"github.com/kestrelci/kestrel/internal/workflow"
)

// Plan is a validated, expanded workflow ready to execute: every job's
// matrix cells plus the dependency graph ordering the jobs.
type Plan struct {
	Workflow *workflow.Workflow
	// Jobs holds the planned jobs in document order, restricted to the
	// selected job and its transitive needs when a filter was given.
	Jobs []*PlannedJob
	// Graph orders job execution by needs.
	Graph *graph.JobGraph
}

// PlannedJob pairs a job definition with its expanded matrix cells.
type PlannedJob struct {
	Job   *workflow.Job
	Cells []*matrix.Cell
}

// Get returns the planned job with the given name, or nil.
func (p *Plan) Get(name string) *PlannedJob {
	for _, pj := range p.Jobs {
		if pj.Job.Name == name {
			return pj
		}
	}
	return nil
}

// CellCount returns the total number of cells across all planned jobs.
func (p *Plan) CellCount() int {
	n := 0
	for _, pj := range p.Jobs {
		n += len(pj.Cells)
	}
	return n
}

// BuildPlan validates the workflow, selects jobs, expands matrices, and
// builds the dependency graph. When only is non-empty the plan is
// restricted to that job and everything it transitively needs.
func BuildPlan(wf *workflow.Workflow, only string) (*Plan, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	selected := wf.Jobs
	if only != "" {
		if wf.Jobs.Get(only) == nil {
			return nil, fmt.Errorf("no job named %q", only)
		}
		selected = selectWithNeeds(wf.Jobs, only)
	}

	names := make([]string, 0, len(selected))
	needs := make(map[string][]string, len(selected))
	plan := &Plan{Workflow: wf}
	for _, job := range selected {
		names = append(names, job.Name)
		needs[job.Name] = job.Needs

		var m *workflow.Matrix
		if job.Strategy != nil {
			m = job.Strategy.Matrix
		}
		plan.Jobs = append(plan.Jobs, &PlannedJob{
			Job:   job,
			Cells: matrix.Expand(job.Name, m),
		})
	}

	g, err := graph.Build(names, needs)
	if err != nil {
		return nil, err
	}
	plan.Graph = g
	return plan, nil
}

// selectWithNeeds returns the named job and its transitive needs,
// preserving document order.
func selectWithNeeds(jobs workflow.JobList, name string) workflow.JobList {
	wanted := map[string]bool{}
	var mark func(n string)
	mark = func(n string) {
		if wanted[n] {
			return
		}
		wanted[n] = true
		if job := jobs.Get(n); job != nil {
			for _, dep := range job.Needs {
				mark(dep)
			}
		}
	}
	mark(name)

	var selected workflow.JobList
	for _, job := range jobs {
		if wanted[job.Name] {
			selected = append(selected, job)
		}
	}
	return selected
}
