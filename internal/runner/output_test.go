package runner

import (
	"strings"
	"testing"
)

func TestTailBufferKeepsTail(t *testing.T) {
	tb := &tailBuffer{}
	tb.add([]byte(strings.Repeat("a", tailLimit)))
	tb.add([]byte("zzzz"))

	got := tb.String()
	if len(got) != tailLimit {
		t.Errorf("tail length = %d, want %d", len(got), tailLimit)
	}
	if !strings.HasSuffix(got, "zzzz") {
		t.Error("tail lost the most recent output")
	}
}

func TestLineWriterSplitsLines(t *testing.T) {
	r := New(Options{Workspace: t.TempDir()})
	tail := &tailBuffer{}
	w := newLineWriter(r, Event{Cell: "build"}, false, tail)

	w.Write([]byte("first\nsec"))
	w.Write([]byte("ond\n"))
	w.Write([]byte("partial"))
	w.Flush()

	var lines []string
	for len(r.events) > 0 {
		ev := <-r.events
		if ev.Type == EventStepOutput {
			lines = append(lines, ev.Line)
		}
	}
	want := []string{"first", "second", "partial"}
	if len(lines) != len(want) {
		t.Fatalf("got %d output events, want %d: %v", len(lines), len(want), lines)
	}
	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
	if tail.String() != "first\nsecond\npartial" {
		t.Errorf("tail = %q", tail.String())
	}
}
