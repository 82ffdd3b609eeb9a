package sparsity

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid pattern", func(t *testing.T) {
		t.Parallel()
		p, err := New([]int{0, 1, 1}, []int{0, 1, 2}, 2, 3)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if p.NNZ() != 3 {
			t.Errorf("NNZ() = %d, want 3", p.NNZ())
		}
		nr, nc := p.Shape()
		if nr != 2 || nc != 3 {
			t.Errorf("Shape() = (%d, %d), want (2, 3)", nr, nc)
		}
		r, c := p.At(2)
		if r != 1 || c != 2 {
			t.Errorf("At(2) = (%d, %d), want (1, 2)", r, c)
		}
	})

	t.Run("copies input slices", func(t *testing.T) {
		t.Parallel()
		rows := []int{0}
		cols := []int{0}
		p, err := New(rows, cols, 1, 1)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		rows[0] = 99
		if r, _ := p.At(0); r != 0 {
			t.Errorf("pattern mutated through caller slice: row = %d", r)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := New([]int{0, 1}, []int{0}, 2, 2)
		if !errors.Is(err, ErrInvalidSparsity) {
			t.Errorf("got %v, want ErrInvalidSparsity", err)
		}
	})

	t.Run("row out of bounds", func(t *testing.T) {
		t.Parallel()
		_, err := New([]int{2}, []int{0}, 2, 2)
		if !errors.Is(err, ErrInvalidSparsity) {
			t.Errorf("got %v, want ErrInvalidSparsity", err)
		}
	})

	t.Run("negative col", func(t *testing.T) {
		t.Parallel()
		_, err := New([]int{0}, []int{-1}, 2, 2)
		if !errors.Is(err, ErrInvalidSparsity) {
			t.Errorf("got %v, want ErrInvalidSparsity", err)
		}
	})

	t.Run("non-positive shape", func(t *testing.T) {
		t.Parallel()
		_, err := New(nil, nil, 0, 3)
		if !errors.Is(err, ErrInvalidSparsity) {
			t.Errorf("got %v, want ErrInvalidSparsity", err)
		}
	})

	t.Run("duplicate entries allowed", func(t *testing.T) {
		t.Parallel()
		p, err := New([]int{0, 0}, []int{1, 1}, 1, 2)
		if err != nil {
			t.Fatalf("New with duplicates: %v", err)
		}
		if p.NNZ() != 2 {
			t.Errorf("NNZ() = %d, want 2", p.NNZ())
		}
	})
}

// cooStub is a minimal TripletSource for testing FromTriplets.
type cooStub struct {
	rows, cols []int
	vals       []float64
}

func (s cooStub) NNZ() int { return len(s.rows) }
func (s cooStub) Triplet(i int) (int, int, float64) {
	return s.rows[i], s.cols[i], s.vals[i]
}

func TestFromTriplets(t *testing.T) {
	t.Parallel()

	t.Run("preserves entry order", func(t *testing.T) {
		t.Parallel()
		src := cooStub{rows: []int{1, 0}, cols: []int{2, 0}, vals: []float64{5, 7}}
		p, err := FromTriplets(src, 2, 3)
		if err != nil {
			t.Fatalf("FromTriplets: %v", err)
		}
		if r, c := p.At(0); r != 1 || c != 2 {
			t.Errorf("At(0) = (%d, %d), want (1, 2)", r, c)
		}
		if r, c := p.At(1); r != 0 || c != 0 {
			t.Errorf("At(1) = (%d, %d), want (0, 0)", r, c)
		}
	})

	t.Run("out-of-shape entry rejected", func(t *testing.T) {
		t.Parallel()
		src := cooStub{rows: []int{3}, cols: []int{0}, vals: []float64{1}}
		_, err := FromTriplets(src, 2, 2)
		if !errors.Is(err, ErrInvalidSparsity) {
			t.Errorf("got %v, want ErrInvalidSparsity", err)
		}
	})
}

func TestDense(t *testing.T) {
	t.Parallel()

	p, err := Dense(2, 3)
	if err != nil {
		t.Fatalf("Dense: %v", err)
	}
	if p.NNZ() != 6 {
		t.Errorf("NNZ() = %d, want 6", p.NNZ())
	}
	if !p.Dense() {
		t.Error("Dense() = false, want true")
	}
	// Row-major ordering.
	wantRows := []int{0, 0, 0, 1, 1, 1}
	wantCols := []int{0, 1, 2, 0, 1, 2}
	for i := 0; i < 6; i++ {
		r, c := p.At(i)
		if r != wantRows[i] || c != wantCols[i] {
			t.Errorf("At(%d) = (%d, %d), want (%d, %d)", i, r, c, wantRows[i], wantCols[i])
		}
	}
}
