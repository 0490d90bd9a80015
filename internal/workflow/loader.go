package workflow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Parse decodes a workflow document from YAML bytes.
// The source name is used in error messages only.
func Parse(data []byte, source string) (*Workflow, error) {
	wf := &Workflow{}
	if err := yaml.Unmarshal(data, wf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	if wf.Name == "" {
		wf.Name = filepath.Base(source)
	}
	return wf, nil
}

// Load reads and parses a workflow file.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return Parse(data, path)
}

// Validate checks well-formedness of the parsed document: every job has
// steps, every step has exactly one of run/uses, needs references exist,
// matrix entries reference known axes, timeouts are not negative.
// Dependency cycles are reported by the graph package when the plan is
// built. All problems found are returned joined, not just the first.
func (w *Workflow) Validate() error {
	var errs []error

	if len(w.Jobs) == 0 {
		errs = append(errs, errors.New("workflow has no jobs"))
	}

	seen := make(map[string]bool, len(w.Jobs))
	for _, job := range w.Jobs {
		if seen[job.Name] {
			errs = append(errs, fmt.Errorf("job %q: duplicate job name", job.Name))
		}
		seen[job.Name] = true
		errs = append(errs, w.validateJob(job)...)
	}

	for _, a := range w.Artifacts {
		if a.Path == "" {
			errs = append(errs, fmt.Errorf("artifact %q: path is required", a.Name))
		}
		if _, err := filepath.Match(a.Path, ""); err != nil {
			errs = append(errs, fmt.Errorf("artifact %q: bad glob %q: %w", a.Name, a.Path, err))
		}
	}

	return errors.Join(errs...)
}

func (w *Workflow) validateJob(job *Job) []error {
	var errs []error

	if len(job.Steps) == 0 {
		errs = append(errs, fmt.Errorf("job %q: no steps", job.Name))
	}
	if job.TimeoutMinutes < 0 {
		errs = append(errs, fmt.Errorf("job %q: negative timeout", job.Name))
	}
	for _, dep := range job.Needs {
		if dep == job.Name {
			errs = append(errs, fmt.Errorf("job %q: depends on itself", job.Name))
			continue
		}
		if w.Jobs.Get(dep) == nil {
			errs = append(errs, fmt.Errorf("job %q: needs unknown job %q", job.Name, dep))
		}
	}
	if job.Container != nil && job.Container.Image == "" {
		errs = append(errs, fmt.Errorf("job %q: container requires an image", job.Name))
	}

	if job.Strategy != nil && job.Strategy.Matrix != nil {
		errs = append(errs, validateMatrix(job.Name, job.Strategy.Matrix)...)
		if job.Strategy.MaxParallel < 0 {
			errs = append(errs, fmt.Errorf("job %q: negative max-parallel", job.Name))
		}
	}

	for i, step := range job.Steps {
		name := step.DisplayName()
		if step.Run == "" && step.Uses == "" {
			errs = append(errs, fmt.Errorf("job %q step %d: one of run or uses is required", job.Name, i+1))
		}
		if step.Run != "" && step.Uses != "" {
			errs = append(errs, fmt.Errorf("job %q step %q: run and uses are mutually exclusive", job.Name, name))
		}
		switch step.Shell {
		case "", "sh", "bash":
		default:
			errs = append(errs, fmt.Errorf("job %q step %q: unsupported shell %q", job.Name, name, step.Shell))
		}
		if step.TimeoutMinutes < 0 {
			errs = append(errs, fmt.Errorf("job %q step %q: negative timeout", job.Name, name))
		}
	}

	return errs
}

func validateMatrix(jobName string, m *Matrix) []error {
	var errs []error

	axes := make(map[string]bool, len(m.Axes))
	for _, axis := range m.Axes {
		if len(axis.Values) == 0 {
			errs = append(errs, fmt.Errorf("job %q: matrix axis %q has no values", jobName, axis.Name))
		}
		if axes[axis.Name] {
			errs = append(errs, fmt.Errorf("job %q: duplicate matrix axis %q", jobName, axis.Name))
		}
		axes[axis.Name] = true
	}
	for i, entry := range m.Exclude {
		if len(entry) == 0 {
			errs = append(errs, fmt.Errorf("job %q: matrix exclude %d is empty", jobName, i+1))
			continue
		}
		for key := range entry {
			if !axes[key] {
				errs = append(errs, fmt.Errorf("job %q: matrix exclude %d references unknown axis %q", jobName, i+1, key))
			}
		}
	}
	for i, entry := range m.Include {
		if len(entry) == 0 {
			errs = append(errs, fmt.Errorf("job %q: matrix include %d is empty", jobName, i+1))
		}
	}

	return errs
}
