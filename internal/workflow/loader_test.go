package workflow

import (
	"strings"
	"testing"
)

const sampleWorkflow = `
name: ci
on:
  pull_request:
    branches: [main]
env:
  CI: "true"
jobs:
  lint:
    runs-on: ubuntu-22.04
    steps:
      - name: Gating lint
        run: flake8 . --count --select=E9,F63,F7,F82 --show-source --statistics
      - name: Advisory lint
        run: flake8 . --count --exit-zero --max-complexity=10 --statistics
        continue-on-error: true
  test:
    runs-on: ${{ matrix.os }}
    needs: lint
    strategy:
      fail-fast: false
      max-parallel: 4
      matrix:
        os: [ubuntu-22.04, macos-13, windows-2022]
        python-version: ["3.10", "3.11", "3.12"]
        exclude:
          - os: windows-2022
            python-version: "3.10"
    steps:
      - name: Install
        run: pip install -e .
      - name: Test
        run: pytest --cov --cov-report=xml
        timeout-minutes: 30
artifacts:
  - name: coverage
    path: coverage.xml
`

func TestParseWorkflow(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow), "ci.yml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if wf.Name != "ci" {
		t.Errorf("Name = %q, want %q", wf.Name, "ci")
	}
	if wf.On.PullRequest == nil {
		t.Fatal("On.PullRequest should be set")
	}
	if got := wf.On.PullRequest.Branches; len(got) != 1 || got[0] != "main" {
		t.Errorf("PullRequest.Branches = %v, want [main]", got)
	}
	if wf.Env["CI"] != "true" {
		t.Errorf("Env[CI] = %q, want %q", wf.Env["CI"], "true")
	}

	if got := wf.Jobs.Names(); len(got) != 2 || got[0] != "lint" || got[1] != "test" {
		t.Errorf("job order = %v, want [lint test]", got)
	}

	lint := wf.Jobs.Get("lint")
	if lint == nil {
		t.Fatal("job lint not found")
	}
	if len(lint.Steps) != 2 {
		t.Fatalf("lint steps = %d, want 2", len(lint.Steps))
	}
	if lint.Steps[0].ContinueOnError {
		t.Error("gating lint step should not be continue-on-error")
	}
	if !lint.Steps[1].ContinueOnError {
		t.Error("advisory lint step should be continue-on-error")
	}

	test := wf.Jobs.Get("test")
	if test == nil {
		t.Fatal("job test not found")
	}
	if len(test.Needs) != 1 || test.Needs[0] != "lint" {
		t.Errorf("test.Needs = %v, want [lint]", test.Needs)
	}
	if test.Strategy == nil || test.Strategy.Matrix == nil {
		t.Fatal("test job should have a matrix")
	}
	if test.Strategy.FailFastEnabled() {
		t.Error("fail-fast: false should disable fail-fast")
	}
	if test.Strategy.MaxParallel != 4 {
		t.Errorf("MaxParallel = %d, want 4", test.Strategy.MaxParallel)
	}

	m := test.Strategy.Matrix
	if got := m.AxisNames(); len(got) != 2 || got[0] != "os" || got[1] != "python-version" {
		t.Errorf("axis order = %v, want [os python-version]", got)
	}
	// Quoted and unquoted scalars both come through as their raw text.
	if got := m.Axes[1].Values; got[0] != "3.10" {
		t.Errorf("python-version values = %v, want first %q", got, "3.10")
	}
	if len(m.Exclude) != 1 || m.Exclude[0]["os"] != "windows-2022" {
		t.Errorf("Exclude = %v", m.Exclude)
	}

	if test.Steps[1].TimeoutMinutes != 30 {
		t.Errorf("step timeout = %d, want 30", test.Steps[1].TimeoutMinutes)
	}
	if len(wf.Artifacts) != 1 || wf.Artifacts[0].Path != "coverage.xml" {
		t.Errorf("Artifacts = %v", wf.Artifacts)
	}
}

func TestParseNeedsList(t *testing.T) {
	doc := `
jobs:
  a:
    steps: [{run: "true"}]
  b:
    steps: [{run: "true"}]
  c:
    needs: [a, b]
    steps: [{run: "true"}]
`
	wf, err := Parse([]byte(doc), "needs.yml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := wf.Jobs.Get("c")
	if len(c.Needs) != 2 || c.Needs[0] != "a" || c.Needs[1] != "b" {
		t.Errorf("c.Needs = %v, want [a b]", c.Needs)
	}
}

func TestParseDefaultsNameFromSource(t *testing.T) {
	wf, err := Parse([]byte("jobs: {a: {steps: [{run: \"true\"}]}}"), "dir/ci.yml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if wf.Name != "ci.yml" {
		t.Errorf("Name = %q, want %q", wf.Name, "ci.yml")
	}
}

func TestValidateSample(t *testing.T) {
	wf, err := Parse([]byte(sampleWorkflow), "ci.yml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := wf.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "no jobs",
			doc:  "name: empty",
			want: "no jobs",
		},
		{
			name: "no steps",
			doc:  "jobs: {a: {runs-on: linux}}",
			want: `job "a": no steps`,
		},
		{
			name: "unknown needs",
			doc:  "jobs: {a: {needs: ghost, steps: [{run: x}]}}",
			want: `needs unknown job "ghost"`,
		},
		{
			name: "self dependency",
			doc:  "jobs: {a: {needs: a, steps: [{run: x}]}}",
			want: "depends on itself",
		},
		{
			name: "step without command",
			doc:  "jobs: {a: {steps: [{name: hollow}]}}",
			want: "one of run or uses is required",
		},
		{
			name: "run and uses together",
			doc:  "jobs: {a: {steps: [{run: x, uses: y}]}}",
			want: "mutually exclusive",
		},
		{
			name: "bad shell",
			doc:  "jobs: {a: {steps: [{run: x, shell: fish}]}}",
			want: `unsupported shell "fish"`,
		},
		{
			name: "empty matrix axis",
			doc:  "jobs: {a: {strategy: {matrix: {os: []}}, steps: [{run: x}]}}",
			want: `matrix axis "os" has no values`,
		},
		{
			name: "exclude unknown axis",
			doc:  "jobs: {a: {strategy: {matrix: {os: [linux], exclude: [{arch: arm}]}}, steps: [{run: x}]}}",
			want: `references unknown axis "arch"`,
		},
		{
			name: "container without image",
			doc:  "jobs: {a: {container: {env: {X: y}}, steps: [{run: x}]}}",
			want: "container requires an image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := Parse([]byte(tt.doc), tt.name)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			err = wf.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}
