package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCollect(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "coverage.xml"), "<coverage/>")
	writeFile(t, filepath.Join(ws, "main.py"), "print()")

	store := NewStore(ws)
	collected, err := store.Collect("run1", "test (linux, 3.11)", "coverage", "coverage.xml")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(collected) != 1 {
		t.Fatalf("len(collected) = %d, want 1", len(collected))
	}

	c := collected[0]
	if c.Artifact != "coverage" || c.Source != "coverage.xml" {
		t.Errorf("collected = %+v", c)
	}
	data, err := os.ReadFile(c.Dest)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(data) != "<coverage/>" {
		t.Errorf("copied content = %q", data)
	}
}

func TestCollectGlob(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, filepath.Join(ws, "reports", "unit.xml"), "a")
	writeFile(t, filepath.Join(ws, "reports", "integration.xml"), "b")
	writeFile(t, filepath.Join(ws, "reports", "notes.txt"), "c")

	store := NewStore(ws)
	collected, err := store.Collect("run1", "test", "reports", "reports/*.xml")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(collected) != 2 {
		t.Fatalf("len(collected) = %d, want 2", len(collected))
	}
	for _, c := range collected {
		if filepath.Ext(c.Source) != ".xml" {
			t.Errorf("collected non-xml file %q", c.Source)
		}
	}
}

func TestCollectNoMatches(t *testing.T) {
	store := NewStore(t.TempDir())
	collected, err := store.Collect("run1", "test", "coverage", "coverage.xml")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(collected) != 0 {
		t.Errorf("collected = %v, want none", collected)
	}
}

func TestCollectSkipsDirectories(t *testing.T) {
	ws := t.TempDir()
	if err := os.MkdirAll(filepath.Join(ws, "coverage.xml"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	store := NewStore(ws)
	collected, err := store.Collect("run1", "test", "coverage", "coverage.xml")
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(collected) != 0 {
		t.Errorf("directories should not be collected, got %v", collected)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"test", "test"},
		{"test (linux, 3.11)", "test-linux-3.11-"},
		{"a/b", "a-b"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
