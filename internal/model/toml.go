package model

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/graviton/internal/partials"
	"github.com/papapumpkin/graviton/internal/sparsity"
)

// File-format structs for TOML model definitions. Partials declared in a
// file are value-carrying and typically constant; models needing recomputed
// partials attach Linearize callbacks in code instead.

// FileModel is the top-level TOML document.
type FileModel struct {
	Name        string           `toml:"name"`
	Components  []FileComponent  `toml:"component"`
	Connections []FileConnection `toml:"connection"`
}

// FileConnection wires one source output into one target input, both
// qualified "component.variable" names.
type FileConnection struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
}

// FileComponent describes one component in a model file.
type FileComponent struct {
	Name     string        `toml:"name"`
	Kind     string        `toml:"kind"` // "explicit" (default) or "implicit"
	Inputs   []FileVar     `toml:"input"`
	Outputs  []FileVar     `toml:"output"`
	Partials []FilePartial `toml:"partial"`
}

// FileVar describes one variable. Size defaults to 1.
type FileVar struct {
	Name string `toml:"name"`
	Size int    `toml:"size"`
}

// FilePartial declares one partial block. Omitting rows/cols declares the
// block dense; values then run row-major over the full block.
type FilePartial struct {
	Of       string    `toml:"of"`
	Wrt      string    `toml:"wrt"`
	Rows     []int     `toml:"rows"`
	Cols     []int     `toml:"cols"`
	Values   []float64 `toml:"values"`
	Constant bool      `toml:"constant"`
}

// LoadFile reads and materializes a model from a TOML file.
func LoadFile(path string) (*Model, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading model file: %w", err)
	}
	var fm FileModel
	if err := toml.Unmarshal(data, &fm); err != nil {
		return nil, "", fmt.Errorf("parsing model file %s: %w", path, err)
	}
	m, err := fm.Build()
	if err != nil {
		return nil, "", err
	}
	return m, fm.Name, nil
}

// Build turns the parsed document into a Model with declared partials and
// connections, and runs Setup.
func (fm *FileModel) Build() (*Model, error) {
	m := New()
	for _, fc := range fm.Components {
		c, err := fc.build()
		if err != nil {
			return nil, err
		}
		if err := m.AddComponent(c); err != nil {
			return nil, err
		}
	}
	for _, conn := range fm.Connections {
		if err := m.Connect(conn.Source, conn.Target); err != nil {
			return nil, err
		}
	}
	if err := m.Setup(); err != nil {
		return nil, err
	}
	return m, nil
}

func (fc *FileComponent) build() (*Component, error) {
	kind := Explicit
	switch fc.Kind {
	case "", "explicit":
	case "implicit":
		kind = Implicit
	default:
		return nil, fmt.Errorf("component %s: unknown kind %q", fc.Name, fc.Kind)
	}

	c := &Component{Name: fc.Name, Kind: kind}
	for _, v := range fc.Inputs {
		c.Inputs = append(c.Inputs, Var{Name: v.Name, Size: sizeOrScalar(v.Size)})
	}
	for _, v := range fc.Outputs {
		c.Outputs = append(c.Outputs, Var{Name: v.Name, Size: sizeOrScalar(v.Size)})
	}

	for _, fp := range fc.Partials {
		if err := declareFilePartial(c, fp); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func declareFilePartial(c *Component, fp FilePartial) error {
	of, ok := c.Output(fp.Of)
	if !ok {
		return fmt.Errorf("%w: partial of %s.%s: no such output", ErrUnknownVariable, c.Name, fp.Of)
	}
	wrt, ok := c.wrtVar(fp.Wrt)
	if !ok {
		return fmt.Errorf("%w: partial (%s, %s, %s): no such variable", ErrUnknownVariable, c.Name, fp.Of, fp.Wrt)
	}

	var p *sparsity.Pattern
	var err error
	if fp.Rows == nil && fp.Cols == nil {
		p, err = sparsity.Dense(of.Size, wrt.Size)
	} else {
		p, err = sparsity.New(fp.Rows, fp.Cols, of.Size, wrt.Size)
	}
	if err != nil {
		return fmt.Errorf("partial (%s, %s, %s): %w", c.Name, fp.Of, fp.Wrt, err)
	}

	opts := []partials.DeclareOption{}
	if fp.Values != nil {
		opts = append(opts, partials.WithValues(fp.Values))
	}
	if fp.Constant {
		opts = append(opts, partials.Constant())
	}
	_, err = c.Partials().Declare(fp.Of, fp.Wrt, p, opts...)
	return err
}

// wrtVar resolves a partial's wrt name: an input, or (for implicit
// components) one of the component's own outputs.
func (c *Component) wrtVar(name string) (Var, bool) {
	if v, ok := c.Input(name); ok {
		return v, true
	}
	if c.Kind == Implicit {
		if v, ok := c.Output(name); ok {
			return v, true
		}
	}
	return Var{}, false
}

func sizeOrScalar(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
