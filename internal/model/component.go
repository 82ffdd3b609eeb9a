package model

import (
	"fmt"
	"strings"

	"github.com/papapumpkin/graviton/internal/partials"
)

// Kind distinguishes how a component defines its outputs.
type Kind int

const (
	// Explicit components compute outputs directly from inputs. Their
	// residual form is output − computed_value, which gives them an
	// implicit identity diagonal block in the global jacobian.
	Explicit Kind = iota
	// Implicit components define residual equations R(outputs, inputs) = 0
	// driven to zero by an external nonlinear solver.
	Implicit
)

// String returns the kind's TOML spelling.
func (k Kind) String() string {
	if k == Implicit {
		return "implicit"
	}
	return "explicit"
}

// Var is one named, sized variable on a component. Size 1 is a scalar;
// larger sizes are contiguous vectors.
type Var struct {
	Name string
	Size int
}

// Component is a named unit exposing inputs, outputs, and a registry of
// declared partial derivatives. Linearize, when set, is the external
// derivative-computation collaborator: it is handed the component's own
// registry and fills borrowed views with current partial values. Components
// whose partials are all constant may leave Linearize nil.
type Component struct {
	Name    string
	Kind    Kind
	Inputs  []Var
	Outputs []Var

	Linearize func(reg *partials.Registry) error

	reg *partials.Registry
}

// Partials returns the component's registry, creating it on first use.
func (c *Component) Partials() *partials.Registry {
	if c.reg == nil {
		c.reg = partials.NewRegistry(c.Name)
	}
	return c.reg
}

// Input returns the named input spec, if declared.
func (c *Component) Input(name string) (Var, bool) {
	for _, v := range c.Inputs {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// Output returns the named output spec, if declared.
func (c *Component) Output(name string) (Var, bool) {
	for _, v := range c.Outputs {
		if v.Name == name {
			return v, true
		}
	}
	return Var{}, false
}

// SplitName splits a qualified variable name "component.variable" into its
// parts. The variable part may itself contain dots.
func SplitName(qualified string) (component, variable string, err error) {
	i := strings.Index(qualified, ".")
	if i <= 0 || i == len(qualified)-1 {
		return "", "", fmt.Errorf("%w: %q is not of the form component.variable", ErrUnknownVariable, qualified)
	}
	return qualified[:i], qualified[i+1:], nil
}
