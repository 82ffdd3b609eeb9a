// Package jacobian assembles per-component partial blocks into one global
// sparse operator dR/dU plus a seed matrix dR/dd for the design leaves.
// Structure is fixed at setup; per-iteration refreshes rewrite only the
// blocks of components whose registries are dirty.
//
// Sign convention: implicit components contribute their declared residual
// partials unchanged. Explicit components are treated as residuals of the
// form output − computed_value, so they contribute an identity diagonal
// block and their declared partials negated. Both kinds feed the same
// operator interchangeably.
package jacobian

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/papapumpkin/graviton/internal/model"
	"github.com/papapumpkin/graviton/internal/partials"
)

// ErrInvalidPartial is returned at setup when a declared partial cannot be
// placed in the global operator: its (of, wrt) names do not resolve, its
// pattern shape disagrees with the variable sizes, or an explicit component
// declares a partial with respect to its own output.
var ErrInvalidPartial = errors.New("partial cannot be assembled")

// block maps one declared partial entry onto global matrix positions.
// rows/cols are per entry index, aligned with the pattern's ordering.
type block struct {
	reg      *partials.Registry
	entry    *partials.Entry
	toDesign bool // true: target dR/dd, false: target dR/dU
	rows     []int
	cols     []int
	sign     float64
}

// Assembler owns the global ordering and the assembled matrices.
type Assembler struct {
	m *model.Model

	states       []string // qualified output names, in declaration order
	stateOffset  map[string]int
	stateSize    map[string]int
	n            int
	designs      []string // qualified unconnected inputs, declaration order
	designOffset map[string]int
	designSize   map[string]int
	nd           int

	blocks   map[string][]*block // component name → its blocks
	identity []int               // diagonal indices pinned to 1.0

	dRdU    *mat.Dense
	dRdd    *mat.Dense
	version uint64
	ready   bool
}

// New creates an assembler over a set-up model. Call Setup before use.
func New(m *model.Model) *Assembler {
	return &Assembler{
		m:            m,
		stateOffset:  make(map[string]int),
		stateSize:    make(map[string]int),
		designOffset: make(map[string]int),
		designSize:   make(map[string]int),
		blocks:       make(map[string][]*block),
	}
}

// Setup builds the global ordering and the block placement plan. The state
// vector concatenates every component output in declaration order; design
// columns concatenate every unconnected input the same way. Setup validates
// every declared partial and fails fast, naming the offending
// (component, of, wrt) triple.
func (a *Assembler) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.m.Setup(); err != nil {
		return err
	}

	// Global state ordering: one contiguous range per output.
	for _, c := range a.m.Components() {
		for _, out := range c.Outputs {
			q := c.Name + "." + out.Name
			a.states = append(a.states, q)
			a.stateOffset[q] = a.n
			a.stateSize[q] = out.Size
			a.n += out.Size
		}
	}
	// Design ordering: one contiguous range per unconnected input.
	for _, q := range a.m.DesignLeaves() {
		compName, varName, err := model.SplitName(q)
		if err != nil {
			return err
		}
		v, _ := a.m.Component(compName).Input(varName)
		a.designs = append(a.designs, q)
		a.designOffset[q] = a.nd
		a.designSize[q] = v.Size
		a.nd += v.Size
	}

	for _, c := range a.m.Components() {
		if err := a.planComponent(c); err != nil {
			return err
		}
	}

	a.dRdU = mat.NewDense(a.n, a.n, nil)
	if a.nd > 0 {
		a.dRdd = mat.NewDense(a.n, a.nd, nil)
	}
	for _, idx := range a.identity {
		a.dRdU.Set(idx, idx, 1.0)
	}
	a.ready = true
	return nil
}

// planComponent resolves each declared partial of one component into a block
// and records identity diagonals for explicit outputs.
func (a *Assembler) planComponent(c *model.Component) error {
	if c.Kind == model.Explicit {
		for _, out := range c.Outputs {
			off := a.stateOffset[c.Name+"."+out.Name]
			for i := 0; i < out.Size; i++ {
				a.identity = append(a.identity, off+i)
			}
		}
	}

	sign := 1.0
	if c.Kind == model.Explicit {
		sign = -1.0
	}

	reg := c.Partials()
	for _, e := range reg.Entries() {
		out, ok := c.Output(e.Of)
		if !ok {
			return fmt.Errorf("%w: (%s, %s, %s): no output %s", ErrInvalidPartial, c.Name, e.Of, e.Wrt, e.Of)
		}
		rowOff := a.stateOffset[c.Name+"."+e.Of]

		var colOff, wrtSize int
		var toDesign bool
		blockSign := sign

		switch {
		case hasInput(c, e.Wrt):
			in, _ := c.Input(e.Wrt)
			wrtSize = in.Size
			q := c.Name + "." + e.Wrt
			if src := a.m.SourceOf(q); src != "" {
				colOff = a.stateOffset[src]
			} else {
				colOff = a.designOffset[q]
				toDesign = true
			}
		case hasOutput(c, e.Wrt):
			if c.Kind == model.Explicit {
				return fmt.Errorf("%w: (%s, %s, %s): explicit component cannot declare a partial with respect to its own output",
					ErrInvalidPartial, c.Name, e.Of, e.Wrt)
			}
			selfOut, _ := c.Output(e.Wrt)
			wrtSize = selfOut.Size
			colOff = a.stateOffset[c.Name+"."+e.Wrt]
			blockSign = 1.0
		default:
			return fmt.Errorf("%w: (%s, %s, %s): no input or output named %s", ErrInvalidPartial, c.Name, e.Of, e.Wrt, e.Wrt)
		}

		nr, nc := e.Pattern.Shape()
		if nr != out.Size || nc != wrtSize {
			return fmt.Errorf("%w: (%s, %s, %s): pattern shape %dx%d, variables are %dx%d",
				ErrInvalidPartial, c.Name, e.Of, e.Wrt, nr, nc, out.Size, wrtSize)
		}

		b := &block{
			reg:      reg,
			entry:    e,
			toDesign: toDesign,
			rows:     make([]int, e.Pattern.NNZ()),
			cols:     make([]int, e.Pattern.NNZ()),
			sign:     blockSign,
		}
		for i := 0; i < e.Pattern.NNZ(); i++ {
			r, col := e.Pattern.At(i)
			b.rows[i] = rowOff + r
			b.cols[i] = colOff + col
		}
		a.blocks[c.Name] = append(a.blocks[c.Name], b)
	}
	return nil
}

// Refresh re-reads every dirty registry's blocks into the global matrices
// and clears the dirty flags. Unchanged blocks keep their prior values. The
// version counter advances only when something was rewritten, so cached
// factorizations stay valid across no-op refreshes.
func (a *Assembler) Refresh() (uint64, error) {
	if !a.ready {
		if err := a.Setup(); err != nil {
			return 0, err
		}
	}
	changed := false
	for _, c := range a.m.Components() {
		reg := c.Partials()
		if !reg.Dirty() {
			continue
		}
		a.rewriteBlocks(a.blocks[c.Name])
		reg.ClearDirty()
		changed = true
	}
	if changed {
		a.version++
	}
	return a.version, nil
}

// rewriteBlocks zeroes a component's global slots and re-accumulates its
// current values. Duplicate (row, col) entries sum additively. Blocks of
// different components never overlap (rows belong to the owning component's
// outputs), so the zero pass is safe.
func (a *Assembler) rewriteBlocks(blocks []*block) {
	for _, b := range blocks {
		dst := a.target(b)
		for i := range b.rows {
			dst.Set(b.rows[i], b.cols[i], 0)
		}
	}
	for _, b := range blocks {
		dst := a.target(b)
		vals := b.entry.Values()
		for i := range b.rows {
			dst.Set(b.rows[i], b.cols[i], dst.At(b.rows[i], b.cols[i])+b.sign*vals[i])
		}
	}
}

func (a *Assembler) target(b *block) *mat.Dense {
	if b.toDesign {
		return a.dRdd
	}
	return a.dRdU
}

// N returns the global state dimension.
func (a *Assembler) N() int { return a.n }

// States returns the qualified output names in global order.
func (a *Assembler) States() []string {
	out := make([]string, len(a.states))
	copy(out, a.states)
	return out
}

// Designs returns the qualified design-leaf names in global column order.
func (a *Assembler) Designs() []string {
	out := make([]string, len(a.designs))
	copy(out, a.designs)
	return out
}

// StateRange returns the global row range of a qualified output name.
func (a *Assembler) StateRange(q string) (offset, size int, ok bool) {
	offset, ok = a.stateOffset[q]
	return offset, a.stateSize[q], ok
}

// DesignRange returns the global design-column range of a qualified
// unconnected input.
func (a *Assembler) DesignRange(q string) (offset, size int, ok bool) {
	offset, ok = a.designOffset[q]
	return offset, a.designSize[q], ok
}

// StateAt returns the qualified name and local index owning global state
// index i, for error reporting.
func (a *Assembler) StateAt(i int) (name string, local int) {
	for _, q := range a.states {
		off := a.stateOffset[q]
		if i < off+a.stateSize[q] {
			return q, i - off
		}
	}
	return "", 0
}

// Matrix returns the assembled dR/dU operator. The returned matrix is owned
// by the assembler and rewritten in place by Refresh.
func (a *Assembler) Matrix() *mat.Dense { return a.dRdU }

// Seed returns dR/dd, the residual partials with respect to the design
// leaves, or nil when the model has no design leaves.
func (a *Assembler) Seed() *mat.Dense { return a.dRdd }

// Version returns the current value-assembly version.
func (a *Assembler) Version() uint64 { return a.version }

func hasInput(c *model.Component, name string) bool {
	_, ok := c.Input(name)
	return ok
}

func hasOutput(c *model.Component, name string) bool {
	_, ok := c.Output(name)
	return ok
}
