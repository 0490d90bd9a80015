// Package expr implements `${{ ... }}` interpolation for workflow
// strings. Expressions are resolved once per cell before execution;
// plain `$VAR` references are left for the shell.
package expr

import (
	"fmt"
	"strings"
)

// Context supplies the values expressions can reference.
type Context struct {
	// Matrix holds the cell's axis values, referenced as matrix.<axis>.
	Matrix map[string]string
	// Env holds the layered environment, referenced as env.<NAME>.
	Env map[string]string
	// Job is the job name, referenced as job.name.
	Job string
	// RunID is the run identifier, referenced as run.id.
	RunID string
}

const (
	exprOpen  = "${{"
	exprClose = "}}"
)

// Interpolate resolves every `${{ ... }}` expression in s against ctx.
// Unknown contexts or keys produce an error naming the expression.
func Interpolate(s string, ctx *Context) (string, error) {
	if !strings.Contains(s, exprOpen) {
		return s, nil
	}

	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, exprOpen)
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		b.WriteString(rest[:start])
		rest = rest[start+len(exprOpen):]

		end := strings.Index(rest, exprClose)
		if end < 0 {
			return "", fmt.Errorf("unterminated expression in %q", s)
		}
		inner := strings.TrimSpace(rest[:end])
		rest = rest[end+len(exprClose):]

		value, err := resolve(inner, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
	}
}

// InterpolateMap resolves expressions in every value of m, returning a
// new map. A nil map stays nil.
func InterpolateMap(m map[string]string, ctx *Context) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		resolved, err := Interpolate(v, ctx)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func resolve(inner string, ctx *Context) (string, error) {
	scope, key, found := strings.Cut(inner, ".")
	if !found {
		return "", fmt.Errorf("malformed expression %q: want <context>.<key>", inner)
	}

	switch scope {
	case "matrix":
		v, ok := ctx.Matrix[key]
		if !ok {
			return "", fmt.Errorf("expression %q: no matrix value %q", inner, key)
		}
		return v, nil
	case "env":
		v, ok := ctx.Env[key]
		if !ok {
			return "", fmt.Errorf("expression %q: no env value %q", inner, key)
		}
		return v, nil
	case "job":
		if key != "name" {
			return "", fmt.Errorf("expression %q: unknown job field %q", inner, key)
		}
		return ctx.Job, nil
	case "run":
		if key != "id" {
			return "", fmt.Errorf("expression %q: unknown run field %q", inner, key)
		}
		return ctx.RunID, nil
	default:
		return "", fmt.Errorf("expression %q: unknown context %q", inner, scope)
	}
}
