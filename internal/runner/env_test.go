package runner

import (
	"reflect"
	"testing"
)

func TestBuildEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/home/dev", "CI=false"}
	got := buildEnv(base,
		map[string]string{"CI": "true", "A": "1"},
		map[string]string{"A": "2", "B": "3"},
	)
	want := []string{"PATH=/usr/bin", "HOME=/home/dev", "A=2", "B=3", "CI=true"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildEnv() = %v, want %v", got, want)
	}
}

func TestMatrixEnv(t *testing.T) {
	got := matrixEnv(map[string]string{"python-version": "3.11", "os": "ubuntu-22.04"})
	if got["KESTREL_MATRIX_PYTHON_VERSION"] != "3.11" {
		t.Errorf("python axis = %q, want %q", got["KESTREL_MATRIX_PYTHON_VERSION"], "3.11")
	}
	if got["KESTREL_MATRIX_OS"] != "ubuntu-22.04" {
		t.Errorf("os axis = %q, want %q", got["KESTREL_MATRIX_OS"], "ubuntu-22.04")
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"os", "OS"},
		{"python-version", "PYTHON_VERSION"},
		{"node.version", "NODE_VERSION"},
		{"arch64", "ARCH64"},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
