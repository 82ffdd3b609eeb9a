package graph

import "sort"

// StronglyConnected returns the strongly connected components of the graph
// using Tarjan's algorithm. Each returned group is sorted; groups appear in
// reverse topological order of the condensation (a group is emitted only
// after everything it feeds). A group larger than one component marks a
// coupled subsystem that needs an iterative solve rather than substitution.
func (g *Graph) StronglyConnected() [][]string {
	t := &tarjan{
		g:       g,
		index:   make(map[string]int, len(g.nodes)),
		lowlink: make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
	}
	for _, id := range g.order {
		if _, seen := t.index[id]; !seen {
			t.strongconnect(id)
		}
	}
	for _, group := range t.groups {
		sort.Strings(group)
	}
	return t.groups
}

type tarjan struct {
	g       *Graph
	counter int
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	groups  [][]string
}

func (t *tarjan) strongconnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.Successors(v) {
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] && t.index[w] < t.lowlink[v] {
			t.lowlink[v] = t.index[w]
		}
	}

	if t.lowlink[v] == t.index[v] {
		var group []string
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			group = append(group, w)
			if w == v {
				break
			}
		}
		t.groups = append(t.groups, group)
	}
}
