// Package matrix expands a job's build matrix into concrete cells.
// Expansion is pure and deterministic: axes iterate in document order,
// values in list order, so the same document always yields the same
// cells in the same order.
package matrix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrelci/kestrel/internal/workflow"
)

// Cell is one concrete combination of matrix values for a job.
type Cell struct {
	// Job is the owning job name.
	Job string
	// Values maps axis name to the value assigned in this cell.
	Values map[string]string
	// Keys lists the value keys in display order: axes in document
	// order, then include-added keys sorted.
	Keys []string
}

// Name returns the display name for the cell, e.g.
// "test (ubuntu-22.04, 3.11)". A cell with no values is just the job name.
func (c *Cell) Name() string {
	if len(c.Keys) == 0 {
		return c.Job
	}
	parts := make([]string, len(c.Keys))
	for i, k := range c.Keys {
		parts[i] = c.Values[k]
	}
	return fmt.Sprintf("%s (%s)", c.Job, strings.Join(parts, ", "))
}

// Expand produces the cells for a job. A nil or empty matrix yields a
// single cell with no values. Exclude entries remove product cells
// matching all their keys; include entries extend matching cells with
// extra keys, or append standalone cells when nothing matches.
func Expand(jobName string, m *workflow.Matrix) []*Cell {
	if m == nil || (len(m.Axes) == 0 && len(m.Include) == 0) {
		return []*Cell{{Job: jobName}}
	}

	cells := productCells(jobName, m.Axes)
	cells = applyExcludes(cells, m.Exclude)
	cells = applyIncludes(jobName, cells, m)
	return cells
}

func productCells(jobName string, axes []workflow.Axis) []*Cell {
	if len(axes) == 0 {
		return nil
	}
	cells := []*Cell{{Job: jobName, Values: map[string]string{}}}
	for _, axis := range axes {
		next := make([]*Cell, 0, len(cells)*len(axis.Values))
		for _, cell := range cells {
			for _, value := range axis.Values {
				values := make(map[string]string, len(cell.Values)+1)
				for k, v := range cell.Values {
					values[k] = v
				}
				values[axis.Name] = value
				keys := append(append([]string(nil), cell.Keys...), axis.Name)
				next = append(next, &Cell{Job: jobName, Values: values, Keys: keys})
			}
		}
		cells = next
	}
	return cells
}

func applyExcludes(cells []*Cell, excludes []map[string]string) []*Cell {
	if len(excludes) == 0 {
		return cells
	}
	kept := cells[:0]
	for _, cell := range cells {
		if !excluded(cell, excludes) {
			kept = append(kept, cell)
		}
	}
	return kept
}

func excluded(cell *Cell, excludes []map[string]string) bool {
	for _, entry := range excludes {
		match := true
		for k, v := range entry {
			if cell.Values[k] != v {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func applyIncludes(jobName string, cells []*Cell, m *workflow.Matrix) []*Cell {
	axisNames := make(map[string]bool, len(m.Axes))
	for _, a := range m.Axes {
		axisNames[a.Name] = true
	}

	for _, entry := range m.Include {
		matchedAny := false
		for _, cell := range cells {
			if includeMatches(cell, entry, axisNames) {
				matchedAny = true
				extendCell(cell, entry, axisNames)
			}
		}
		if !matchedAny {
			cells = append(cells, standaloneCell(jobName, entry, m.Axes))
		}
	}
	return cells
}

// includeMatches reports whether every axis-valued key of the include
// entry agrees with the cell. Entries with no axis keys match every cell.
func includeMatches(cell *Cell, entry map[string]string, axisNames map[string]bool) bool {
	for k, v := range entry {
		if !axisNames[k] {
			continue
		}
		if cell.Values[k] != v {
			return false
		}
	}
	return true
}

func extendCell(cell *Cell, entry map[string]string, axisNames map[string]bool) {
	var added []string
	for k, v := range entry {
		if axisNames[k] {
			continue
		}
		if _, exists := cell.Values[k]; !exists {
			added = append(added, k)
		}
		cell.Values[k] = v
	}
	sort.Strings(added)
	cell.Keys = append(cell.Keys, added...)
}

func standaloneCell(jobName string, entry map[string]string, axes []workflow.Axis) *Cell {
	values := make(map[string]string, len(entry))
	for k, v := range entry {
		values[k] = v
	}

	// Axis keys first in document order, then the rest sorted.
	var keys []string
	for _, a := range axes {
		if _, ok := values[a.Name]; ok {
			keys = append(keys, a.Name)
		}
	}
	var extra []string
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for k := range values {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	return &Cell{Job: jobName, Values: values, Keys: keys}
}
