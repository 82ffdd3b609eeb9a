package graph

import (
	"fmt"
	"sort"
)

// TopologicalGroups partitions the components into an ordered sequence of
// groups such that every connection crosses from an earlier group to a later
// one (or stays inside a group). Components in the same group have no
// relative ordering constraint and may be evaluated in parallel. Coupled
// components (members of one strongly connected cycle) always land in the
// same group. Works on any graph, cyclic or not.
func (g *Graph) TopologicalGroups() [][]string {
	sccs := g.StronglyConnected()

	// Map each component to its SCC index, then run Kahn level-sets on the
	// condensation, which is acyclic by construction.
	sccOf := make(map[string]int, len(g.nodes))
	for i, group := range sccs {
		for _, id := range group {
			sccOf[id] = i
		}
	}

	inDegree := make([]int, len(sccs))
	succ := make([]map[int]bool, len(sccs))
	for i := range succ {
		succ[i] = make(map[int]bool)
	}
	for _, from := range g.order {
		for to := range g.succ[from] {
			a, b := sccOf[from], sccOf[to]
			if a != b && !succ[a][b] {
				succ[a][b] = true
				inDegree[b]++
			}
		}
	}

	frontier := make([]int, 0, len(sccs))
	for i, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, i)
		}
	}

	var groups [][]string
	for len(frontier) > 0 {
		var level []string
		var next []int
		for _, i := range frontier {
			level = append(level, sccs[i]...)
			for j := range succ[i] {
				inDegree[j]--
				if inDegree[j] == 0 {
					next = append(next, j)
				}
			}
		}
		sort.Strings(level)
		groups = append(groups, level)
		sort.Ints(next)
		frontier = next
	}
	return groups
}

// ExplicitOrder returns a flat evaluation order in which every producer
// precedes its consumers. This is only possible for acyclic graphs: if any
// coupled cycle exists the order is undefined and ErrCyclicDependency is
// returned naming the coupled components.
func (g *Graph) ExplicitOrder() ([]string, error) {
	for _, group := range g.StronglyConnected() {
		if len(group) > 1 {
			return nil, fmt.Errorf("%w: coupled components %v require an iterative solve", ErrCyclicDependency, group)
		}
	}
	var order []string
	for _, group := range g.TopologicalGroups() {
		order = append(order, group...)
	}
	return order, nil
}
