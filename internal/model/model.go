// Package model ties components and connections into one analyzable system.
// A Model owns the dependency graph, validates the wiring at Setup, and runs
// the per-component linearize callbacks that refresh partial values each
// iteration. State values themselves live with an external nonlinear solver;
// only the derivative machinery is here.
package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/papapumpkin/graviton/internal/graph"
)

// ErrDuplicateComponent is returned when two components share a name.
var ErrDuplicateComponent = errors.New("duplicate component")

// ErrUnknownVariable is returned when a qualified name does not resolve to a
// declared variable.
var ErrUnknownVariable = errors.New("unknown variable")

// ErrInputReconnected is returned when an input is connected to more than one
// source. An input receives from exactly one output.
var ErrInputReconnected = errors.New("input already connected")

// ErrSizeMismatch is returned when a connection joins variables of different
// sizes.
var ErrSizeMismatch = errors.New("connected variable sizes differ")

// Connection joins a source output to a target input, both qualified names.
type Connection struct {
	Source string
	Target string
}

// Model is the full set of components plus the connections between them.
type Model struct {
	components map[string]*Component
	order      []string
	// sourceOf maps a target input's qualified name to its source output.
	sourceOf    map[string]string
	connections []Connection
	g           *graph.Graph
	ready       bool
}

// New creates an empty model.
func New() *Model {
	return &Model{
		components: make(map[string]*Component),
		sourceOf:   make(map[string]string),
	}
}

// AddComponent registers a component. Returns ErrDuplicateComponent when the
// name is taken.
func (m *Model) AddComponent(c *Component) error {
	if _, exists := m.components[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name)
	}
	m.components[c.Name] = c
	m.order = append(m.order, c.Name)
	m.ready = false
	return nil
}

// Connect wires source ("producer.output") into target ("consumer.input").
// Endpoint existence and size agreement are checked at Setup; uniqueness of
// the target is checked immediately.
func (m *Model) Connect(source, target string) error {
	if prev, taken := m.sourceOf[target]; taken {
		return fmt.Errorf("%w: %s already fed by %s", ErrInputReconnected, target, prev)
	}
	m.sourceOf[target] = source
	m.connections = append(m.connections, Connection{Source: source, Target: target})
	m.ready = false
	return nil
}

// Setup validates the wiring and builds the dependency graph. It must be
// called (and succeed) before the model is handed to the assembler. Setup is
// idempotent; adding components or connections invalidates it.
func (m *Model) Setup() error {
	g := graph.New()
	for _, name := range m.order {
		if err := g.AddNode(name); err != nil {
			return err
		}
	}

	for _, conn := range m.connections {
		srcComp, srcVar, err := m.resolveOutput(conn.Source)
		if err != nil {
			return err
		}
		dstComp, dstVar, err := m.resolveInput(conn.Target)
		if err != nil {
			return err
		}
		if srcVar.Size != dstVar.Size {
			return fmt.Errorf("%w: %s (size %d) → %s (size %d)",
				ErrSizeMismatch, conn.Source, srcVar.Size, conn.Target, dstVar.Size)
		}
		if err := g.AddEdge(srcComp.Name, dstComp.Name); err != nil {
			return err
		}
	}

	m.g = g
	m.ready = true
	return nil
}

// Graph returns the dependency graph built by Setup, or nil before Setup.
func (m *Model) Graph() *graph.Graph { return m.g }

// Component returns the named component, or nil.
func (m *Model) Component(name string) *Component { return m.components[name] }

// Components returns all components in declaration order.
func (m *Model) Components() []*Component {
	out := make([]*Component, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.components[name])
	}
	return out
}

// Connections returns all connections in declaration order.
func (m *Model) Connections() []Connection {
	out := make([]Connection, len(m.connections))
	copy(out, m.connections)
	return out
}

// SourceOf returns the qualified source output feeding the given target
// input, or "" when the input is unconnected (a design leaf).
func (m *Model) SourceOf(target string) string { return m.sourceOf[target] }

// DesignLeaves returns the qualified names of all unconnected inputs, in
// component and input declaration order. These are the independent variables
// that total derivatives can be taken with respect to.
func (m *Model) DesignLeaves() []string {
	var leaves []string
	for _, name := range m.order {
		for _, in := range m.components[name].Inputs {
			q := name + "." + in.Name
			if _, connected := m.sourceOf[q]; !connected {
				leaves = append(leaves, q)
			}
		}
	}
	return leaves
}

// Linearize invokes every component's derivative-computation callback,
// walking the topological groups in order. Components inside one group have
// no data dependency on each other and run concurrently; each callback
// writes only its own registry, so no locking is needed beyond the join.
// The first callback error aborts the pass.
func (m *Model) Linearize() error {
	if !m.ready {
		if err := m.Setup(); err != nil {
			return err
		}
	}
	for _, group := range m.g.TopologicalGroups() {
		var wg sync.WaitGroup
		errs := make([]error, len(group))
		for i, name := range group {
			c := m.components[name]
			if c.Linearize == nil {
				continue
			}
			wg.Add(1)
			go func(i int, c *Component) {
				defer wg.Done()
				if err := c.Linearize(c.Partials()); err != nil {
					errs[i] = fmt.Errorf("linearize %s: %w", c.Name, err)
				} else {
					c.Partials().Touch()
				}
			}(i, c)
		}
		wg.Wait()
		if err := errors.Join(errs...); err != nil {
			return err
		}
	}
	return nil
}

// resolveOutput resolves "comp.var" against declared outputs.
func (m *Model) resolveOutput(qualified string) (*Component, Var, error) {
	compName, varName, err := SplitName(qualified)
	if err != nil {
		return nil, Var{}, err
	}
	c, ok := m.components[compName]
	if !ok {
		return nil, Var{}, fmt.Errorf("%w: component %s in %q", ErrUnknownVariable, compName, qualified)
	}
	v, ok := c.Output(varName)
	if !ok {
		return nil, Var{}, fmt.Errorf("%w: %s has no output %s", ErrUnknownVariable, compName, varName)
	}
	return c, v, nil
}

// resolveInput resolves "comp.var" against declared inputs.
func (m *Model) resolveInput(qualified string) (*Component, Var, error) {
	compName, varName, err := SplitName(qualified)
	if err != nil {
		return nil, Var{}, err
	}
	c, ok := m.components[compName]
	if !ok {
		return nil, Var{}, fmt.Errorf("%w: component %s in %q", ErrUnknownVariable, compName, qualified)
	}
	v, ok := c.Input(varName)
	if !ok {
		return nil, Var{}, fmt.Errorf("%w: %s has no input %s", ErrUnknownVariable, compName, varName)
	}
	return c, v, nil
}
