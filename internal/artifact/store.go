// Package artifact collects declared workflow artifacts from the
// workspace after a cell succeeds, and optionally uploads them to
// S3-compatible storage.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Collected describes one artifact file gathered from the workspace.
type Collected struct {
	// Artifact is the declared artifact name.
	Artifact string
	// Source is the matched path relative to the workspace.
	Source string
	// Dest is the absolute path of the stored copy.
	Dest string
}

// Store copies matched artifact files into a local directory tree,
// .kestrel/artifacts/<run>/<cell>/ under the workspace.
type Store struct {
	workspace string
}

// NewStore creates a store rooted at the given workspace.
func NewStore(workspace string) *Store {
	return &Store{workspace: workspace}
}

// Dir returns the destination directory for a run and cell.
func (s *Store) Dir(runID, cell string) string {
	return filepath.Join(s.workspace, ".kestrel", "artifacts", runID, sanitize(cell))
}

// Collect matches the glob against the workspace and copies every hit
// into the run's artifact directory. A glob that matches nothing is not
// an error; the caller decides whether to warn.
func (s *Store) Collect(runID, cell, name, glob string) ([]Collected, error) {
	matches, err := filepath.Glob(filepath.Join(s.workspace, glob))
	if err != nil {
		return nil, fmt.Errorf("artifact %q: bad glob %q: %w", name, glob, err)
	}

	destDir := s.Dir(runID, cell)
	var collected []Collected
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(s.workspace, match)
		if err != nil {
			return collected, fmt.Errorf("artifact %q: %w", name, err)
		}
		dest := filepath.Join(destDir, rel)
		if err := copyFile(match, dest); err != nil {
			return collected, fmt.Errorf("artifact %q: copy %s: %w", name, rel, err)
		}
		collected = append(collected, Collected{Artifact: name, Source: rel, Dest: dest})
	}
	return collected, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// sanitize makes a cell name safe for use as a directory component.
func sanitize(cell string) string {
	out := make([]rune, 0, len(cell))
	for _, r := range cell {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			out = append(out, r)
		case r == ' ':
			// collapse spacing noise from "job (a, b)" names
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
