// Package graph models the dependency structure between components: nodes
// are components, edges point from a producer to each consumer of one of its
// outputs. Unlike a task DAG, cycles are legal here — they represent coupled
// implicit systems resolved by an external solver — so edge insertion never
// rejects a cycle. Cycle detection is explicit and only fails callers that
// demand a pure explicit evaluation order.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateNode is returned when adding a component that already exists.
var ErrDuplicateNode = errors.New("duplicate component")

// ErrNodeNotFound is returned when an operation references an unknown component.
var ErrNodeNotFound = errors.New("component not found")

// ErrSelfEdge is returned when a connection would loop a component onto itself.
var ErrSelfEdge = errors.New("self-referencing connection")

// ErrCyclicDependency is returned by ExplicitOrder when the graph contains a
// cycle. Cycles are otherwise legal.
var ErrCyclicDependency = errors.New("cyclic dependency")

// Graph is a directed graph of components. Edges point in the direction of
// data flow: producer → consumer.
type Graph struct {
	nodes map[string]bool
	order []string
	// succ maps component → set of downstream consumers.
	succ map[string]map[string]bool
	// pred maps component → set of upstream producers.
	pred map[string]map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]bool),
		succ:  make(map[string]map[string]bool),
		pred:  make(map[string]map[string]bool),
	}
}

// AddNode registers a component. Returns ErrDuplicateNode if it already exists.
func (g *Graph) AddNode(id string) error {
	if g.nodes[id] {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	g.nodes[id] = true
	g.order = append(g.order, id)
	g.succ[id] = make(map[string]bool)
	g.pred[id] = make(map[string]bool)
	return nil
}

// AddEdge records that consumer to receives data from producer from. Both
// components must exist. Adding an edge that closes a cycle is legal; only a
// self-loop is rejected. Re-adding an existing edge is a no-op.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if !g.nodes[from] {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	g.succ[from][to] = true
	g.pred[to][from] = true
	return nil
}

// Has reports whether the component exists.
func (g *Graph) Has(id string) bool { return g.nodes[id] }

// Len returns the number of components.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all component IDs in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Successors returns the direct consumers of a component, sorted.
func (g *Graph) Successors(id string) []string {
	return sortedKeys(g.succ[id])
}

// Predecessors returns the direct producers feeding a component, sorted.
func (g *Graph) Predecessors(id string) []string {
	return sortedKeys(g.pred[id])
}

// Reachable reports whether data flowing out of src can influence dst through
// any chain of connections. A component is considered reachable from itself.
func (g *Graph) Reachable(src, dst string) bool {
	if !g.nodes[src] || !g.nodes[dst] {
		return false
	}
	if src == dst {
		return true
	}
	visited := map[string]bool{src: true}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.succ[cur] {
			if next == dst {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
