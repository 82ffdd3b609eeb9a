// Package solve computes total derivatives from the assembled global
// jacobian. Given a request naming responses (of) and design variables
// (wrt), it picks the cheaper of forward and adjoint mode, performs one
// linear solve per column of the smaller set, and returns a dense totals
// matrix. The factorization is cached across requests and invalidated only
// when assembled values change.
package solve

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/papapumpkin/graviton/internal/jacobian"
	"github.com/papapumpkin/graviton/internal/model"
	"github.com/papapumpkin/graviton/internal/telemetry"
)

// ErrSingularJacobian is returned when the assembled operator has no valid
// inverse at the current point. The request is aborted; model state and any
// prior factorization remain usable.
var ErrSingularJacobian = errors.New("singular jacobian")

// ErrEmptyRequest is returned when a request names no responses or no design
// variables.
var ErrEmptyRequest = errors.New("empty totals request")

// Mode selects the direction of the chain-rule linear solves.
type Mode int

const (
	// Auto picks the mode minimizing the number of linear solves.
	Auto Mode = iota
	// Forward solves one system per design-variable column.
	Forward
	// Reverse solves one transposed system per response row.
	Reverse
)

// String returns the mode's display name.
func (m Mode) String() string {
	switch m {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "auto"
	}
}

// Request names the responses and design variables for one totals
// computation, as qualified "component.variable" names.
type Request struct {
	Of  []string
	Wrt []string
}

// Result carries the dense totals matrix plus bookkeeping for callers and
// tests: which mode ran, how many linear solves were performed, and which
// requested pairs are structurally zero (no connection path at all).
type Result struct {
	Totals *mat.Dense
	Mode   Mode
	Solves int
	// ZeroBlocks lists requested (of, wrt) pairs with no path of declared
	// partials between them. Their blocks are exactly zero; this is not an
	// error, disconnected variables are legitimately independent.
	ZeroBlocks [][2]string

	ofOffset  map[string]int
	ofSize    map[string]int
	wrtOffset map[string]int
	wrtSize   map[string]int
}

// Block returns the (of, wrt) sub-matrix of the totals, or nil if either
// name was not part of the request.
func (r *Result) Block(of, wrt string) *mat.Dense {
	ro, ok := r.ofOffset[of]
	if !ok {
		return nil
	}
	co, ok := r.wrtOffset[wrt]
	if !ok {
		return nil
	}
	return r.Totals.Slice(ro, ro+r.ofSize[of], co, co+r.wrtSize[wrt]).(*mat.Dense)
}

// Option configures a Solver.
type Option func(*Solver)

// WithTelemetry attaches a JSONL event emitter. A nil emitter is a no-op.
func WithTelemetry(em *telemetry.Emitter) Option {
	return func(s *Solver) { s.emitter = em }
}

// WithMode overrides automatic mode selection.
func WithMode(m Mode) Option {
	return func(s *Solver) { s.forced = m }
}

// Solver owns the factorization of the assembled operator. One totals
// request holds the solver for its whole duration; concurrent requests
// serialize on the internal mutex.
type Solver struct {
	mu  sync.Mutex
	asm *jacobian.Assembler
	mdl *model.Model

	lu         mat.LU
	facVersion uint64
	facValid   bool

	forced  Mode
	emitter *telemetry.Emitter
}

// New creates a solver over an assembler built from the given model.
func New(mdl *model.Model, asm *jacobian.Assembler, opts ...Option) *Solver {
	s := &Solver{asm: asm, mdl: mdl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Totals computes the total-derivative matrix for the request. Rows follow
// the request's of order, columns its wrt order, each variable occupying a
// contiguous range of its size. Repeated calls with no state change between
// them return bit-identical results.
func (s *Solver) Totals(req Request) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(req.Of) == 0 || len(req.Wrt) == 0 {
		return nil, fmt.Errorf("%w: of=%v wrt=%v", ErrEmptyRequest, req.Of, req.Wrt)
	}
	s.emit(telemetry.KindRequestStart, map[string]any{"of": req.Of, "wrt": req.Wrt})

	version, err := s.asm.Refresh()
	if err != nil {
		return nil, err
	}

	res := &Result{
		ofOffset:  make(map[string]int),
		ofSize:    make(map[string]int),
		wrtOffset: make(map[string]int),
		wrtSize:   make(map[string]int),
	}

	// Resolve request names against the global orderings.
	nOf := 0
	for _, q := range req.Of {
		_, size, ok := s.asm.StateRange(q)
		if !ok {
			return nil, fmt.Errorf("%w: response %q is not a component output", model.ErrUnknownVariable, q)
		}
		res.ofOffset[q] = nOf
		res.ofSize[q] = size
		nOf += size
	}
	nWrt := 0
	for _, q := range req.Wrt {
		_, size, ok := s.asm.DesignRange(q)
		if !ok {
			return nil, fmt.Errorf("%w: design variable %q is not an unconnected input", model.ErrUnknownVariable, q)
		}
		res.wrtOffset[q] = nWrt
		res.wrtSize[q] = size
		nWrt += size
	}

	if version != s.facVersion || !s.facValid {
		if err := s.factorize(); err != nil {
			return nil, err
		}
		s.facVersion = version
		s.facValid = true
	}

	// Reverse when responses are fewer; forward on ties. One solve per
	// column of the smaller set.
	mode := s.forced
	if mode == Auto {
		if nOf < nWrt {
			mode = Reverse
		} else {
			mode = Forward
		}
	}
	res.Mode = mode
	res.Totals = mat.NewDense(nOf, nWrt, nil)
	res.ZeroBlocks = s.zeroBlocks(req)

	if mode == Forward {
		err = s.solveForward(req, res)
	} else {
		err = s.solveReverse(req, res)
	}
	if err != nil {
		return nil, err
	}

	s.emit(telemetry.KindRequestDone, map[string]any{"mode": mode.String(), "solves": res.Solves})
	return res, nil
}

// solveForward solves dR/dU · x = −dR/dd column by column; totals rows are
// read straight off the solution vector at each response's state range.
func (s *Solver) solveForward(req Request, res *Result) error {
	n := s.asm.N()
	seed := s.asm.Seed()
	rhs := mat.NewVecDense(n, nil)
	x := mat.NewVecDense(n, nil)

	for _, wq := range req.Wrt {
		gOff, size, _ := s.asm.DesignRange(wq)
		for k := 0; k < size; k++ {
			for i := 0; i < n; i++ {
				rhs.SetVec(i, -seed.At(i, gOff+k))
			}
			if err := s.lu.SolveVecTo(x, false, rhs); err != nil {
				s.facValid = false
				return fmt.Errorf("%w: forward solve for %s: %v", ErrSingularJacobian, wq, err)
			}
			res.Solves++
			s.emit(telemetry.KindSolve, map[string]any{"mode": "forward", "wrt": wq, "col": k})

			col := res.wrtOffset[wq] + k
			for _, oq := range req.Of {
				sOff, sSize, _ := s.asm.StateRange(oq)
				rowBase := res.ofOffset[oq]
				for i := 0; i < sSize; i++ {
					res.Totals.Set(rowBase+i, col, x.AtVec(sOff+i))
				}
			}
		}
	}
	return nil
}

// solveReverse solves (dR/dU)ᵀ · ψ = e_r per response row; the totals row is
// −ψᵀ · dR/dd restricted to the requested design columns.
func (s *Solver) solveReverse(req Request, res *Result) error {
	n := s.asm.N()
	seed := s.asm.Seed()
	rhs := mat.NewVecDense(n, nil)
	psi := mat.NewVecDense(n, nil)

	for _, oq := range req.Of {
		sOff, sSize, _ := s.asm.StateRange(oq)
		for k := 0; k < sSize; k++ {
			for i := 0; i < n; i++ {
				rhs.SetVec(i, 0)
			}
			rhs.SetVec(sOff+k, 1)
			if err := s.lu.SolveVecTo(psi, true, rhs); err != nil {
				s.facValid = false
				return fmt.Errorf("%w: adjoint solve for %s: %v", ErrSingularJacobian, oq, err)
			}
			res.Solves++
			s.emit(telemetry.KindSolve, map[string]any{"mode": "reverse", "of": oq, "row": k})

			row := res.ofOffset[oq] + k
			for _, wq := range req.Wrt {
				gOff, size, _ := s.asm.DesignRange(wq)
				colBase := res.wrtOffset[wq]
				for j := 0; j < size; j++ {
					dot := 0.0
					for i := 0; i < n; i++ {
						dot += psi.AtVec(i) * seed.At(i, gOff+j)
					}
					res.Totals.Set(row, colBase+j, -dot)
				}
			}
		}
	}
	return nil
}

// factorize runs the structural singularity checks and LU-factorizes the
// current operator.
func (s *Solver) factorize() error {
	m := s.asm.Matrix()
	if err := checkSingular(s.asm, m); err != nil {
		return err
	}
	s.lu.Factorize(m)
	if s.lu.Det() == 0 {
		return fmt.Errorf("%w: operator is numerically singular (zero pivot during LU factorization)", ErrSingularJacobian)
	}
	s.emit(telemetry.KindFactorize, map[string]any{"n": s.asm.N(), "version": s.asm.Version()})
	return nil
}

// zeroBlocks identifies requested pairs with no connection path from the
// design variable's component to the response's component.
func (s *Solver) zeroBlocks(req Request) [][2]string {
	g := s.mdl.Graph()
	var zero [][2]string
	for _, oq := range req.Of {
		oComp, _, err := model.SplitName(oq)
		if err != nil {
			continue
		}
		for _, wq := range req.Wrt {
			wComp, _, err := model.SplitName(wq)
			if err != nil {
				continue
			}
			if !g.Reachable(wComp, oComp) {
				zero = append(zero, [2]string{oq, wq})
			}
		}
	}
	return zero
}

func (s *Solver) emit(kind string, data map[string]any) {
	_ = s.emitter.Emit(telemetry.Event{Kind: kind, Data: data})
}
