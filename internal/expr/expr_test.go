package expr

import (
	"strings"
	"testing"
)

func testContext() *Context {
	return &Context{
		Matrix: map[string]string{"os": "ubuntu-22.04", "python-version": "3.11"},
		Env:    map[string]string{"CI": "true"},
		Job:    "test",
		RunID:  "11112222-3333-4444-5555-666677778888",
	}
}

func TestInterpolate(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"${{ matrix.os }}", "ubuntu-22.04"},
		{"python:${{ matrix.python-version }}", "python:3.11"},
		{"${{matrix.os}}/${{ env.CI }}", "ubuntu-22.04/true"},
		{"${{ job.name }} on ${{ matrix.os }}", "test on ubuntu-22.04"},
		{"run ${{ run.id }}", "run 11112222-3333-4444-5555-666677778888"},
		{"echo $HOME", "echo $HOME"}, // shell vars pass through
		{"", ""},
	}
	for _, tt := range tests {
		got, err := Interpolate(tt.in, ctx)
		if err != nil {
			t.Errorf("Interpolate(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInterpolateErrors(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		in   string
		want string
	}{
		{"${{ matrix.arch }}", `no matrix value "arch"`},
		{"${{ env.MISSING }}", `no env value "MISSING"`},
		{"${{ secrets.TOKEN }}", `unknown context "secrets"`},
		{"${{ job.id }}", `unknown job field "id"`},
		{"${{ matrix.os }", "unterminated expression"},
		{"${{ bare }}", "malformed expression"},
	}
	for _, tt := range tests {
		_, err := Interpolate(tt.in, ctx)
		if err == nil {
			t.Errorf("Interpolate(%q) = nil error, want one containing %q", tt.in, tt.want)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("Interpolate(%q) error = %q, want it to contain %q", tt.in, err, tt.want)
		}
	}
}

func TestInterpolateMap(t *testing.T) {
	ctx := testContext()

	out, err := InterpolateMap(map[string]string{
		"PYTHON": "${{ matrix.python-version }}",
		"STATIC": "fixed",
	}, ctx)
	if err != nil {
		t.Fatalf("InterpolateMap error: %v", err)
	}
	if out["PYTHON"] != "3.11" {
		t.Errorf("PYTHON = %q, want %q", out["PYTHON"], "3.11")
	}
	if out["STATIC"] != "fixed" {
		t.Errorf("STATIC = %q, want %q", out["STATIC"], "fixed")
	}

	nilOut, err := InterpolateMap(nil, ctx)
	if err != nil {
		t.Fatalf("InterpolateMap(nil) error: %v", err)
	}
	if nilOut != nil {
		t.Errorf("InterpolateMap(nil) = %v, want nil", nilOut)
	}
}
