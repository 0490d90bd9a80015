// Package workflow defines the YAML workflow schema and its loader.
// A workflow names an ordered set of jobs; each job carries an optional
// build matrix and an ordered list of shell steps.
package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Workflow is a parsed workflow document.
type Workflow struct {
	// Name is the workflow name shown in run output.
	Name string `yaml:"name"`
	// On declares the events this workflow triggers on.
	On Triggers `yaml:"on"`
	// Env is workflow-level environment, inherited by every job.
	Env map[string]string `yaml:"env"`
	// Jobs are the jobs in document order.
	Jobs JobList `yaml:"jobs"`
	// Artifacts are collected from the workspace after successful cells.
	Artifacts []Artifact `yaml:"artifacts"`
}

// Triggers declares the events a workflow responds to.
type Triggers struct {
	PullRequest *BranchFilter `yaml:"pull_request"`
	Push        *BranchFilter `yaml:"push"`
}

// BranchFilter restricts a trigger to branches matching any of the
// listed patterns. An empty list matches every branch.
type BranchFilter struct {
	Branches []string `yaml:"branches"`
}

// Job is one job definition. Matrix expansion turns a job into one or
// more concrete cells; cells of the same job are independent.
type Job struct {
	// Name is the job key from the jobs mapping.
	Name string `yaml:"-"`
	// RunsOn labels the runner; it may reference matrix values.
	RunsOn string `yaml:"runs-on"`
	// Needs lists jobs that must succeed before this one starts.
	Needs StringList `yaml:"needs"`
	// Strategy holds the matrix and fan-out controls.
	Strategy *Strategy `yaml:"strategy"`
	// Container, when set, runs the job's steps inside a container.
	Container *Container `yaml:"container"`
	// Env is job-level environment, layered over workflow env.
	Env map[string]string `yaml:"env"`
	// TimeoutMinutes bounds the whole job; zero means no bound.
	TimeoutMinutes int `yaml:"timeout-minutes"`
	// Steps are executed in order.
	Steps []*Step `yaml:"steps"`
}

// Strategy controls matrix expansion and cell fan-out.
type Strategy struct {
	Matrix *Matrix `yaml:"matrix"`
	// FailFast cancels remaining cells once one fails. Defaults to true.
	FailFast *bool `yaml:"fail-fast"`
	// MaxParallel bounds concurrent cells; zero means the configured default.
	MaxParallel int `yaml:"max-parallel"`
}

// FailFastEnabled reports the effective fail-fast setting.
func (s *Strategy) FailFastEnabled() bool {
	if s == nil || s.FailFast == nil {
		return true
	}
	return *s.FailFast
}

// Container describes the container a job runs in.
type Container struct {
	Image string `yaml:"image"`
	// Env is applied inside the container, over the job env.
	Env map[string]string `yaml:"env"`
	// Options are extra engine options, passed through verbatim.
	Options string `yaml:"options"`
}

// Step is a single unit of work inside a job.
type Step struct {
	// Name is the display name; empty falls back to the command.
	Name string `yaml:"name"`
	// Run is an inline shell command. Exactly one of Run and Uses is set.
	Run string `yaml:"run"`
	// Uses references a reusable action, resolved via the actions map in
	// the tool configuration.
	Uses string `yaml:"uses"`
	// Shell selects the interpreter for Run; "sh" when empty.
	Shell string `yaml:"shell"`
	// WorkingDirectory runs the step in a subdirectory of the workspace.
	WorkingDirectory string `yaml:"working-directory"`
	// Env is step-level environment, layered over job env.
	Env map[string]string `yaml:"env"`
	// ContinueOnError records a failure as a warning instead of gating
	// the job. This is how advisory lint passes are expressed.
	ContinueOnError bool `yaml:"continue-on-error"`
	// TimeoutMinutes bounds this step; zero falls back to the job bound.
	TimeoutMinutes int `yaml:"timeout-minutes"`
}

// DisplayName returns the step name, falling back to its command.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Run != "" {
		return s.Run
	}
	return s.Uses
}

// Artifact names files to collect from the workspace after a cell succeeds.
type Artifact struct {
	Name string `yaml:"name"`
	// Path is a glob matched relative to the workspace root.
	Path string `yaml:"path"`
}

// JobList preserves the document order of the jobs mapping. yaml.v3
// decodes mappings into Go maps with randomized iteration, so the
// ordering has to be recovered from the node pairs.
type JobList []*Job

// UnmarshalYAML decodes the jobs mapping keeping key order.
func (l *JobList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("jobs: expected a mapping, got %s at line %d", nodeKind(node), node.Line)
	}
	jobs := make(JobList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		job := &Job{}
		if err := valNode.Decode(job); err != nil {
			return fmt.Errorf("job %q: %w", keyNode.Value, err)
		}
		job.Name = keyNode.Value
		jobs = append(jobs, job)
	}
	*l = jobs
	return nil
}

// Get returns the job with the given name, or nil.
func (l JobList) Get(name string) *Job {
	for _, j := range l {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// Names returns the job names in document order.
func (l JobList) Names() []string {
	names := make([]string, len(l))
	for i, j := range l {
		names[i] = j.Name
	}
	return names
}

// StringList accepts either a scalar or a sequence in YAML.
// GitHub-style workflows allow `needs: build` and `needs: [a, b]`.
type StringList []string

// UnmarshalYAML decodes a scalar or sequence of scalars.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringList(v)
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence, got %s at line %d", nodeKind(node), node.Line)
	}
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
