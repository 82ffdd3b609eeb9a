// Package sparsity describes the nonzero structure of partial-derivative
// blocks in coordinate (COO) format. A Pattern is immutable after
// construction; value buffers supplied later align positionally with the
// (row, col) sequence given here, and that ordering is never permuted.
package sparsity

import (
	"errors"
	"fmt"
)

// ErrInvalidSparsity is returned when a pattern's index sequences are
// malformed: mismatched lengths or an index outside the declared shape.
var ErrInvalidSparsity = errors.New("invalid sparsity")

// TripletSource is any sparse-matrix representation that can enumerate its
// nonzero entries as (row, col, value) triples. The value is ignored when
// deriving a Pattern; only the structure is read.
type TripletSource interface {
	// NNZ returns the number of stored entries.
	NNZ() int
	// Triplet returns the i-th stored entry.
	Triplet(i int) (row, col int, value float64)
}

// Pattern is the coordinate-format nonzero structure of one partial block.
// Duplicate (row, col) pairs are permitted; on assembly their values
// accumulate additively.
type Pattern struct {
	rows  []int
	cols  []int
	nRows int
	nCols int
	dense bool
}

// New builds a Pattern from explicit row/col index sequences over an
// nRows×nCols block. Returns ErrInvalidSparsity if the sequences differ in
// length or any index is out of bounds. Indices are copied; the caller's
// slices are not retained.
func New(rows, cols []int, nRows, nCols int) (*Pattern, error) {
	if nRows <= 0 || nCols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d is not positive", ErrInvalidSparsity, nRows, nCols)
	}
	if len(rows) != len(cols) {
		return nil, fmt.Errorf("%w: %d rows vs %d cols", ErrInvalidSparsity, len(rows), len(cols))
	}
	for i := range rows {
		if rows[i] < 0 || rows[i] >= nRows {
			return nil, fmt.Errorf("%w: row index %d outside [0, %d)", ErrInvalidSparsity, rows[i], nRows)
		}
		if cols[i] < 0 || cols[i] >= nCols {
			return nil, fmt.Errorf("%w: col index %d outside [0, %d)", ErrInvalidSparsity, cols[i], nCols)
		}
	}
	p := &Pattern{
		rows:  make([]int, len(rows)),
		cols:  make([]int, len(cols)),
		nRows: nRows,
		nCols: nCols,
	}
	copy(p.rows, rows)
	copy(p.cols, cols)
	return p, nil
}

// FromTriplets derives a Pattern from any sparse structure exposing
// (row, col, value) triples. Values are discarded; entry order is preserved.
func FromTriplets(src TripletSource, nRows, nCols int) (*Pattern, error) {
	n := src.NNZ()
	rows := make([]int, n)
	cols := make([]int, n)
	for i := 0; i < n; i++ {
		rows[i], cols[i], _ = src.Triplet(i)
	}
	return New(rows, cols, nRows, nCols)
}

// Dense builds the implicit full pattern for an nRows×nCols block: every
// (row, col) pair in row-major order.
func Dense(nRows, nCols int) (*Pattern, error) {
	if nRows <= 0 || nCols <= 0 {
		return nil, fmt.Errorf("%w: shape %dx%d is not positive", ErrInvalidSparsity, nRows, nCols)
	}
	n := nRows * nCols
	rows := make([]int, 0, n)
	cols := make([]int, 0, n)
	for r := 0; r < nRows; r++ {
		for c := 0; c < nCols; c++ {
			rows = append(rows, r)
			cols = append(cols, c)
		}
	}
	p := &Pattern{rows: rows, cols: cols, nRows: nRows, nCols: nCols, dense: true}
	return p, nil
}

// NNZ returns the number of declared entries, duplicates included.
func (p *Pattern) NNZ() int { return len(p.rows) }

// Shape returns the block dimensions (nRows, nCols).
func (p *Pattern) Shape() (int, int) { return p.nRows, p.nCols }

// Dense reports whether the pattern covers the full block.
func (p *Pattern) Dense() bool { return p.dense }

// At returns the (row, col) position of the i-th declared entry.
// The index order is the construction order and is stable for the
// pattern's lifetime.
func (p *Pattern) At(i int) (row, col int) {
	return p.rows[i], p.cols[i]
}
