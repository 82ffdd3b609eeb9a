// Package partials stores the declared partial-derivative blocks of one
// component. Each (of, wrt) pair owns a sparsity pattern and a value buffer;
// the registry lends mutable views onto the buffers so derivative code can
// update values in place without allocating.
package partials

import (
	"errors"
	"fmt"

	"github.com/papapumpkin/graviton/internal/sparsity"
)

// ErrDuplicateDeclaration is returned when an (of, wrt) pair is declared twice
// on the same component.
var ErrDuplicateDeclaration = errors.New("partial already declared")

// ErrShapeMismatch is returned when supplied values do not match the declared
// pattern's nonzero count.
var ErrShapeMismatch = errors.New("value length does not match pattern")

// ErrImmutablePartial is returned when SetValues targets an entry declared
// constant. Constant values are supplied once at declaration and never
// recomputed.
var ErrImmutablePartial = errors.New("partial declared constant")

// ErrUndeclaredPartial is returned when looking up an (of, wrt) pair that was
// never declared.
var ErrUndeclaredPartial = errors.New("partial not declared")

// Entry is one declared partial block: its structure, current values, and
// mutability. The value buffer is owned by the registry for the entry's
// lifetime.
type Entry struct {
	Of       string
	Wrt      string
	Pattern  *sparsity.Pattern
	Constant bool

	values []float64
}

// Values returns the entry's backing value buffer. The same slice is returned
// on every call; writes through it are visible to the assembler.
func (e *Entry) Values() []float64 { return e.values }

// DeclareOption configures one declaration.
type DeclareOption func(*declareOpts)

type declareOpts struct {
	values   []float64
	constant bool
}

// WithValues supplies initial values aligned with the pattern's entry order.
func WithValues(vals []float64) DeclareOption {
	return func(o *declareOpts) { o.values = vals }
}

// Constant marks the entry immutable: values are fixed at declaration time
// and SetValues will be rejected.
func Constant() DeclareOption {
	return func(o *declareOpts) { o.constant = true }
}

// Registry holds the declared partials of a single component, keyed by
// (of, wrt). It is exclusively owned by that component; no locking is done
// here.
type Registry struct {
	component string
	entries   map[pairKey]*Entry
	order     []pairKey
	dirty     bool
}

type pairKey struct {
	of, wrt string
}

// NewRegistry creates an empty registry for the named component. The name is
// used only in error messages.
func NewRegistry(component string) *Registry {
	return &Registry{
		component: component,
		entries:   make(map[pairKey]*Entry),
	}
}

// Component returns the owning component's name.
func (r *Registry) Component() string { return r.component }

// Declare registers one partial block for the (of, wrt) pair. A nil pattern
// declares the block implicitly dense and requires an nRows×nCols shape via
// sparsity.Dense beforehand, so callers always pass an explicit pattern here.
// Returns ErrDuplicateDeclaration if the pair is already declared, or
// ErrShapeMismatch if initial values do not match the pattern's nonzero
// count. A freshly declared entry without initial values is zero-filled.
func (r *Registry) Declare(of, wrt string, p *sparsity.Pattern, opts ...DeclareOption) (*Entry, error) {
	key := pairKey{of, wrt}
	if _, exists := r.entries[key]; exists {
		return nil, fmt.Errorf("%w: (%s, %s, %s)", ErrDuplicateDeclaration, r.component, of, wrt)
	}

	var o declareOpts
	for _, opt := range opts {
		opt(&o)
	}

	nnz := p.NNZ()
	if o.values != nil && len(o.values) != nnz {
		return nil, fmt.Errorf("%w: (%s, %s, %s) got %d values, pattern has %d entries",
			ErrShapeMismatch, r.component, of, wrt, len(o.values), nnz)
	}

	e := &Entry{
		Of:       of,
		Wrt:      wrt,
		Pattern:  p,
		Constant: o.constant,
		values:   make([]float64, nnz),
	}
	copy(e.values, o.values)

	r.entries[key] = e
	r.order = append(r.order, key)
	r.dirty = true
	return e, nil
}

// View returns a mutable handle onto the entry's value buffer for in-place
// update. Repeated calls return the same underlying storage. Writing through
// the view does not mark the registry dirty; callers that mutate a view must
// call Touch before assembly.
func (r *Registry) View(of, wrt string) ([]float64, error) {
	e, ok := r.entries[pairKey{of, wrt}]
	if !ok {
		return nil, fmt.Errorf("%w: (%s, %s, %s)", ErrUndeclaredPartial, r.component, of, wrt)
	}
	return e.values, nil
}

// SetValues bulk-replaces the entry's values. Fails with ErrImmutablePartial
// for constant entries (values are left unchanged) and ErrShapeMismatch on a
// length mismatch. On success the registry is marked dirty.
func (r *Registry) SetValues(of, wrt string, vals []float64) error {
	e, ok := r.entries[pairKey{of, wrt}]
	if !ok {
		return fmt.Errorf("%w: (%s, %s, %s)", ErrUndeclaredPartial, r.component, of, wrt)
	}
	if e.Constant {
		return fmt.Errorf("%w: (%s, %s, %s)", ErrImmutablePartial, r.component, of, wrt)
	}
	if len(vals) != len(e.values) {
		return fmt.Errorf("%w: (%s, %s, %s) got %d values, want %d",
			ErrShapeMismatch, r.component, of, wrt, len(vals), len(e.values))
	}
	copy(e.values, vals)
	r.dirty = true
	return nil
}

// Entry returns the declared entry for (of, wrt), or nil if undeclared.
func (r *Registry) Entry(of, wrt string) *Entry {
	return r.entries[pairKey{of, wrt}]
}

// Entries returns all declared entries in declaration order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key])
	}
	return out
}

// Touch marks the registry dirty, signalling the assembler to re-read its
// blocks. View writers call this after mutating a borrowed buffer.
func (r *Registry) Touch() { r.dirty = true }

// Dirty reports whether any values changed since the last ClearDirty.
func (r *Registry) Dirty() bool { return r.dirty }

// ClearDirty resets the dirty flag. Called by the assembler after it has
// re-read the registry's blocks.
func (r *Registry) ClearDirty() { r.dirty = false }
