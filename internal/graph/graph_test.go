package graph

import (
	"errors"
	"reflect"
	"testing"
)

// buildGraph constructs a graph from edge pairs, adding nodes on first use.
func buildGraph(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()
	g := New()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%q): %v", n, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%q, %q): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	t.Parallel()

	t.Run("basic", func(t *testing.T) {
		t.Parallel()
		g := New()
		if err := g.AddNode("a"); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		if !g.Has("a") || g.Len() != 1 {
			t.Errorf("Has/Len inconsistent after add")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		g := New()
		_ = g.AddNode("a")
		if err := g.AddNode("a"); !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("got %v, want ErrDuplicateNode", err)
		}
	})
}

func TestAddEdge(t *testing.T) {
	t.Parallel()

	t.Run("cycle is legal", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b"}, nil)
		if err := g.AddEdge("a", "b"); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
		// Closing the loop must not fail: coupled systems are valid.
		if err := g.AddEdge("b", "a"); err != nil {
			t.Fatalf("AddEdge closing cycle: %v", err)
		}
	})

	t.Run("self edge rejected", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a"}, nil)
		if err := g.AddEdge("a", "a"); !errors.Is(err, ErrSelfEdge) {
			t.Errorf("got %v, want ErrSelfEdge", err)
		}
	})

	t.Run("missing node", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a"}, nil)
		if err := g.AddEdge("a", "zz"); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("got %v, want ErrNodeNotFound", err)
		}
	})
}

func TestReachable(t *testing.T) {
	t.Parallel()
	g := buildGraph(t,
		[]string{"a", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"b", "c"}},
	)

	cases := []struct {
		src, dst string
		want     bool
	}{
		{"a", "c", true},
		{"a", "a", true},
		{"c", "a", false}, // direction matters
		{"a", "d", false}, // d is an island
		{"zz", "a", false},
	}
	for _, tc := range cases {
		if got := g.Reachable(tc.src, tc.dst); got != tc.want {
			t.Errorf("Reachable(%q, %q) = %v, want %v", tc.src, tc.dst, got, tc.want)
		}
	}
}

func TestStronglyConnected(t *testing.T) {
	t.Parallel()

	t.Run("acyclic graph gives singletons", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
		sccs := g.StronglyConnected()
		if len(sccs) != 3 {
			t.Fatalf("got %d SCCs, want 3: %v", len(sccs), sccs)
		}
		for _, s := range sccs {
			if len(s) != 1 {
				t.Errorf("SCC %v not a singleton", s)
			}
		}
	})

	t.Run("coupled pair lands in one group", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b", "c"},
			[][2]string{{"a", "b"}, {"b", "a"}, {"b", "c"}})
		sccs := g.StronglyConnected()
		var coupled []string
		for _, s := range sccs {
			if len(s) > 1 {
				coupled = s
			}
		}
		if !reflect.DeepEqual(coupled, []string{"a", "b"}) {
			t.Errorf("coupled group = %v, want [a b]", coupled)
		}
	})
}

func TestTopologicalGroups(t *testing.T) {
	t.Parallel()

	t.Run("diamond", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b", "c", "d"},
			[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}})
		groups := g.TopologicalGroups()
		want := [][]string{{"a"}, {"b", "c"}, {"d"}}
		if !reflect.DeepEqual(groups, want) {
			t.Errorf("TopologicalGroups() = %v, want %v", groups, want)
		}
	})

	t.Run("cycle collapses into one group", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b", "c"},
			[][2]string{{"a", "b"}, {"b", "a"}, {"b", "c"}})
		groups := g.TopologicalGroups()
		want := [][]string{{"a", "b"}, {"c"}}
		if !reflect.DeepEqual(groups, want) {
			t.Errorf("TopologicalGroups() = %v, want %v", groups, want)
		}
	})

	t.Run("cross-group edges point forward", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"w", "x", "y", "z"},
			[][2]string{{"w", "x"}, {"x", "y"}, {"w", "z"}, {"z", "y"}})
		groups := g.TopologicalGroups()
		pos := make(map[string]int)
		for i, grp := range groups {
			for _, id := range grp {
				pos[id] = i
			}
		}
		for _, from := range g.Nodes() {
			for _, to := range g.Successors(from) {
				if pos[from] >= pos[to] {
					t.Errorf("edge %s→%s does not point forward (%d >= %d)", from, to, pos[from], pos[to])
				}
			}
		}
	})
}

func TestExplicitOrder(t *testing.T) {
	t.Parallel()

	t.Run("acyclic", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})
		order, err := g.ExplicitOrder()
		if err != nil {
			t.Fatalf("ExplicitOrder: %v", err)
		}
		if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
			t.Errorf("order = %v, want [a b c]", order)
		}
	})

	t.Run("cycle fails only here", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}})
		if _, err := g.ExplicitOrder(); !errors.Is(err, ErrCyclicDependency) {
			t.Errorf("got %v, want ErrCyclicDependency", err)
		}
	})
}

func TestIslands(t *testing.T) {
	t.Parallel()
	g := buildGraph(t, []string{"a", "b", "x", "y", "solo"},
		[][2]string{{"a", "b"}, {"x", "y"}})
	islands := g.Islands()
	want := [][]string{{"a", "b"}, {"solo"}, {"x", "y"}}
	if !reflect.DeepEqual(islands, want) {
		t.Errorf("Islands() = %v, want %v", islands, want)
	}
}
