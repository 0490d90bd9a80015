package graph

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildDetectsCycle(t *testing.T) {
	_, err := Build([]string{"a", "b", "c"}, map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	})
	if err == nil {
		t.Fatal("Build should fail on a cycle")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("error = %T, want *CycleError", err)
	}
	if len(cycleErr.Path) < 3 {
		t.Errorf("cycle path %v too short", cycleErr.Path)
	}
	if cycleErr.Path[0] != cycleErr.Path[len(cycleErr.Path)-1] {
		t.Errorf("cycle path %v should start and end with the same job", cycleErr.Path)
	}
}

func TestBuildUnknownDependency(t *testing.T) {
	_, err := Build([]string{"a"}, map[string][]string{"a": {"ghost"}})
	if err == nil {
		t.Fatal("Build should fail on an unknown dependency")
	}
}

func TestReadyOrderAndDispatchOnce(t *testing.T) {
	g, err := Build([]string{"lint", "build", "test"}, map[string][]string{
		"test": {"build"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ready := g.Ready()
	if !reflect.DeepEqual(ready, []string{"lint", "build"}) {
		t.Fatalf("Ready() = %v, want [lint build]", ready)
	}

	// Dispatched jobs are not handed out twice.
	if again := g.Ready(); len(again) != 0 {
		t.Errorf("second Ready() = %v, want empty", again)
	}

	g.MarkDone("build")
	ready = g.Ready()
	if !reflect.DeepEqual(ready, []string{"test"}) {
		t.Errorf("Ready() after build = %v, want [test]", ready)
	}
}

func TestMarkFailedSkipsTransitiveDependents(t *testing.T) {
	g, err := Build([]string{"a", "b", "c", "d"}, map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_ = g.Ready()
	skipped := g.MarkFailed("a")
	if !reflect.DeepEqual(skipped, []string{"b", "c"}) {
		t.Errorf("skipped = %v, want [b c]", skipped)
	}

	// d is independent and still runnable.
	g.MarkDone("d")
	if !g.Exhausted() {
		t.Error("graph should be exhausted once every job is terminal")
	}
	if !g.Failed() {
		t.Error("graph should report failure")
	}
}

func TestOrderTopological(t *testing.T) {
	g, err := Build([]string{"deploy", "test", "build"}, map[string][]string{
		"deploy": {"test"},
		"test":   {"build"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	order := g.Order()
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	if pos["build"] > pos["test"] || pos["test"] > pos["deploy"] {
		t.Errorf("Order() = %v, want build before test before deploy", order)
	}
}

func TestExhaustedEmptyProgress(t *testing.T) {
	g, err := Build([]string{"only"}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.Exhausted() {
		t.Error("fresh graph should not be exhausted")
	}
	g.MarkDone("only")
	if !g.Exhausted() {
		t.Error("graph with all jobs done should be exhausted")
	}
	if g.Failed() {
		t.Error("graph without failures should not report failure")
	}
}
