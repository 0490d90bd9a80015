// Package graph provides the job dependency graph used to order
// workflow execution. Jobs are nodes; an edge means "needs".
package graph

import (
	"fmt"
	"strings"
	"sync"
)

// CycleError reports a circular needs chain, including the cycle path.
type CycleError struct {
	// Path lists the job names forming the cycle, first repeated last.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular job dependency: %s", strings.Join(e.Path, " -> "))
}

// JobGraph is a directed acyclic graph of job dependencies. Node order
// follows the workflow document, so ready sets come back deterministic.
type JobGraph struct {
	mu sync.RWMutex
	// order lists job names in document order.
	order []string
	// deps maps a job to the jobs it needs.
	deps map[string][]string
	// done tracks jobs that finished successfully.
	done map[string]bool
	// failed tracks jobs that failed (or were cancelled).
	failed map[string]bool
	// skipped tracks jobs skipped because a dependency failed.
	skipped map[string]bool
	// dispatched tracks jobs handed out by Ready and not yet resolved.
	dispatched map[string]bool
}

// Build constructs the graph from job names and their needs lists.
// The caller guarantees that every dependency references a known job;
// Build verifies it anyway and detects cycles.
func Build(names []string, needs map[string][]string) (*JobGraph, error) {
	g := &JobGraph{
		order:      append([]string(nil), names...),
		deps:       make(map[string][]string, len(names)),
		done:       make(map[string]bool),
		failed:     make(map[string]bool),
		skipped:    make(map[string]bool),
		dispatched: make(map[string]bool),
	}

	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}
	for _, name := range names {
		for _, dep := range needs[name] {
			if !known[dep] {
				return nil, fmt.Errorf("job %q needs unknown job %q", name, dep)
			}
		}
		g.deps[name] = append([]string(nil), needs[name]...)
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	return g, nil
}

// findCycle runs a colored depth-first search and returns the cycle
// path if one exists.
func (g *JobGraph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		colors[name] = gray
		stack = append(stack, name)

		for _, dep := range g.deps[name] {
			switch colors[dep] {
			case gray:
				// Back edge: slice the stack from the first occurrence.
				for i, s := range stack {
					if s == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						return true
					}
				}
				cycle = []string{name, dep, name}
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[name] = black
		return false
	}

	for _, name := range g.order {
		if colors[name] == white && visit(name) {
			return cycle
		}
	}
	return nil
}

// Ready returns jobs whose dependencies have all completed and which
// have not been dispatched, finished, or skipped. Each returned job is
// marked dispatched so it is handed out exactly once. Results follow
// document order.
func (g *JobGraph) Ready() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ready []string
	for _, name := range g.order {
		if g.done[name] || g.failed[name] || g.skipped[name] || g.dispatched[name] {
			continue
		}
		satisfied := true
		for _, dep := range g.deps[name] {
			if !g.done[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			g.dispatched[name] = true
			ready = append(ready, name)
		}
	}
	return ready
}

// MarkDone records a successful job.
func (g *JobGraph) MarkDone(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.dispatched, name)
	g.done[name] = true
}

// MarkFailed records a failed (or cancelled) job and marks its
// transitive dependents as skipped. The skipped job names are returned
// in document order.
func (g *JobGraph) MarkFailed(name string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.dispatched, name)
	g.failed[name] = true

	// Propagate: a job is skipped once any of its needs is failed or
	// skipped. Iterate to a fixed point; the graph is small.
	var newlySkipped []string
	for changed := true; changed; {
		changed = false
		for _, candidate := range g.order {
			if g.done[candidate] || g.failed[candidate] || g.skipped[candidate] {
				continue
			}
			for _, dep := range g.deps[candidate] {
				if g.failed[dep] || g.skipped[dep] {
					g.skipped[candidate] = true
					delete(g.dispatched, candidate)
					newlySkipped = append(newlySkipped, candidate)
					changed = true
					break
				}
			}
		}
	}
	return newlySkipped
}

// Exhausted reports whether every job has reached a terminal state.
func (g *JobGraph) Exhausted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, name := range g.order {
		if !g.done[name] && !g.failed[name] && !g.skipped[name] {
			return false
		}
	}
	return true
}

// Failed reports whether any job failed.
func (g *JobGraph) Failed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.failed) > 0
}

// Order returns a topological ordering of the jobs, dependencies first.
// Ties resolve to document order.
func (g *JobGraph) Order() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool, len(g.order))
	var result []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, dep := range g.deps[name] {
			visit(dep)
		}
		result = append(result, name)
	}

	for _, name := range g.order {
		visit(name)
	}
	return result
}

// Dependencies returns the needs list for a job.
func (g *JobGraph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.deps[name]
}

// Size returns the number of jobs in the graph.
func (g *JobGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}
