package ui

import (
	"strings"
	"testing"
)

func TestRender_SingleComponent(t *testing.T) {
	t.Parallel()

	r := &Renderer{Width: 80, UseColor: false}
	out := r.Render([][]string{{"aero"}}, nil)

	if out == "" {
		t.Fatal("Render returned empty string for single component")
	}
	if !strings.Contains(out, "aero") {
		t.Errorf("output missing component name:\n%s", out)
	}
	// Should have box-drawing characters.
	if !strings.Contains(out, "┌") || !strings.Contains(out, "┘") {
		t.Errorf("output missing box borders:\n%s", out)
	}
}

func TestRender_TwoComponentChain(t *testing.T) {
	t.Parallel()

	groups := [][]string{{"aero"}, {"struct"}}
	producers := map[string][]string{"struct": {"aero"}}

	r := &Renderer{Width: 80, UseColor: false}
	out := r.Render(groups, producers)

	if !strings.Contains(out, "aero") || !strings.Contains(out, "struct") {
		t.Errorf("output missing component names:\n%s", out)
	}
	// Should have connector characters between groups.
	if !strings.Contains(out, "│") {
		t.Errorf("output missing vertical connector '│':\n%s", out)
	}
}

func TestRender_Diamond(t *testing.T) {
	t.Parallel()

	groups := [][]string{{"geom"}, {"aero", "struct"}, {"perf"}}
	producers := map[string][]string{
		"aero":   {"geom"},
		"struct": {"geom"},
		"perf":   {"aero", "struct"},
	}

	r := &Renderer{Width: 100, UseColor: false}
	out := r.Render(groups, producers)

	for _, name := range []string{"geom", "aero", "struct", "perf"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing %q:\n%s", name, out)
		}
	}
}

func TestRender_CoupledBorders(t *testing.T) {
	t.Parallel()

	groups := [][]string{{"d1", "d2"}}
	producers := map[string][]string{"d1": {"d2"}, "d2": {"d1"}}

	r := &Renderer{
		Width:    80,
		UseColor: false,
		Coupled:  map[string]bool{"d1": true, "d2": true},
	}
	out := r.Render(groups, producers)

	// Coupled components get double-line borders.
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╝") {
		t.Errorf("coupled components should use double borders:\n%s", out)
	}
}

func TestRender_Colors(t *testing.T) {
	t.Parallel()

	groups := [][]string{{"exp", "imp", "cyc"}}
	r := &Renderer{
		Width:    120,
		UseColor: true,
		Implicit: map[string]bool{"imp": true},
		Coupled:  map[string]bool{"cyc": true},
	}
	out := r.Render(groups, nil)

	// Blue for explicit, yellow for implicit, magenta for coupled.
	if !strings.Contains(out, "\033[34m") {
		t.Errorf("explicit component should be blue:\n%s", out)
	}
	if !strings.Contains(out, "\033[33m") {
		t.Errorf("implicit component should be yellow:\n%s", out)
	}
	if !strings.Contains(out, "\033[35m") {
		t.Errorf("coupled component should be magenta:\n%s", out)
	}
}

func TestRender_NoColorMode(t *testing.T) {
	t.Parallel()

	r := &Renderer{Width: 80, UseColor: false, Implicit: map[string]bool{"a": true}}
	out := r.Render([][]string{{"a"}}, nil)

	if strings.Contains(out, "\033[") {
		t.Errorf("UseColor=false should not contain ANSI escapes:\n%s", out)
	}
}

func TestRender_CompactMode(t *testing.T) {
	t.Parallel()

	// 11 components to trigger compact mode.
	group := make([]string, 11)
	producers := make(map[string][]string)
	for i := range group {
		group[i] = string(rune('a' + i))
		if i > 0 {
			producers[group[i]] = []string{"a"}
		}
	}

	r := &Renderer{Width: 120, UseColor: false}
	out := r.Render([][]string{{"a"}, group[1:]}, producers)

	// Compact mode uses bracket notation and group labels.
	if !strings.Contains(out, "[") || !strings.Contains(out, "]") {
		t.Errorf("compact mode should use bracket notation:\n%s", out)
	}
	if !strings.Contains(out, "Group 1") {
		t.Errorf("compact mode should contain group labels:\n%s", out)
	}
	if !strings.Contains(out, "←") {
		t.Errorf("compact mode should show producer arrows:\n%s", out)
	}
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()

	r := &Renderer{Width: 80, UseColor: false}
	if out := r.Render(nil, nil); out != "" {
		t.Errorf("empty input should return empty string, got: %q", out)
	}
	if out := r.Render([][]string{}, nil); out != "" {
		t.Errorf("empty groups should return empty string, got: %q", out)
	}
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	groups := [][]string{{"geom"}, {"aero", "struct"}, {"perf"}}
	producers := map[string][]string{
		"aero":   {"geom"},
		"struct": {"geom"},
		"perf":   {"struct", "aero"},
	}

	r := &Renderer{Width: 100, UseColor: false}
	first := r.Render(groups, producers)
	for i := 0; i < 10; i++ {
		if got := r.Render(groups, producers); got != first {
			t.Fatalf("render is non-deterministic:\nfirst:\n%s\nattempt %d:\n%s", first, i, got)
		}
	}
}

func TestRender_NarrowWidth(t *testing.T) {
	t.Parallel()

	groups := [][]string{{"alpha"}, {"beta"}}
	producers := map[string][]string{"beta": {"alpha"}}

	// Minimum width should still produce output without panicking.
	r := &Renderer{Width: 20, UseColor: false}
	if out := r.Render(groups, producers); out == "" {
		t.Fatal("narrow width should still produce output")
	}
}

func TestRender_DefaultWidth(t *testing.T) {
	t.Parallel()

	// Width=0 should default to 80.
	r := &Renderer{Width: 0, UseColor: false}
	if out := r.Render([][]string{{"a"}}, nil); out == "" {
		t.Fatal("default width should produce output")
	}
}
