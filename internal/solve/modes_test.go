package solve

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/papapumpkin/graviton/internal/model"
)

func TestModeSelection(t *testing.T) {
	t.Parallel()

	// Three independent f_i = k_i * x_i components give freely sizable
	// of/wrt sets.
	build := func(t *testing.T) *Solver {
		m := model.New()
		for _, name := range []string{"c1", "c2", "c3"} {
			if err := m.AddComponent(scalarComp(t, name, "x", "f", 2.0)); err != nil {
				t.Fatalf("AddComponent: %v", err)
			}
		}
		return newSolver(t, m)
	}

	cases := []struct {
		name     string
		of, wrt  []string
		wantMode Mode
		want     int
	}{
		{"more wrt than of picks reverse", []string{"c1.f"}, []string{"c1.x", "c2.x", "c3.x"}, Reverse, 1},
		{"more of than wrt picks forward", []string{"c1.f", "c2.f", "c3.f"}, []string{"c1.x"}, Forward, 1},
		{"tie picks forward", []string{"c1.f", "c2.f"}, []string{"c1.x", "c2.x"}, Forward, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := build(t)
			res, err := s.Totals(Request{Of: tc.of, Wrt: tc.wrt})
			if err != nil {
				t.Fatalf("Totals: %v", err)
			}
			if res.Mode != tc.wantMode {
				t.Errorf("Mode = %v, want %v", res.Mode, tc.wantMode)
			}
			if res.Solves != tc.want {
				t.Errorf("Solves = %d, want %d (min of sizes)", res.Solves, tc.want)
			}
		})
	}
}

func TestForcedMode(t *testing.T) {
	t.Parallel()
	m := model.New()
	if err := m.AddComponent(scalarComp(t, "parab", "x", "f", 2.0)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	s := newSolver(t, m, WithMode(Reverse))

	res, err := s.Totals(Request{Of: []string{"parab.f"}, Wrt: []string{"parab.x"}})
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if res.Mode != Reverse {
		t.Errorf("Mode = %v, want forced Reverse", res.Mode)
	}
	if got := res.Totals.At(0, 0); !approx(got, 2.0) {
		t.Errorf("df/dx = %v, want 2 in either mode", got)
	}
}

func TestIdempotentRequests(t *testing.T) {
	t.Parallel()
	m := model.New()
	if err := m.AddComponent(scalarComp(t, "a", "x", "y", 3.0)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := m.AddComponent(scalarComp(t, "b", "y", "z", 1.0)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := m.Connect("a.y", "b.y"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s := newSolver(t, m)

	req := Request{Of: []string{"b.z"}, Wrt: []string{"a.x"}}
	r1, err := s.Totals(req)
	if err != nil {
		t.Fatalf("first Totals: %v", err)
	}
	r2, err := s.Totals(req)
	if err != nil {
		t.Fatalf("second Totals: %v", err)
	}
	if !mat.Equal(r1.Totals, r2.Totals) {
		t.Errorf("repeated request differs:\n%v\nvs\n%v",
			mat.Formatted(r1.Totals), mat.Formatted(r2.Totals))
	}
}

func TestDisconnectedBlockIsZero(t *testing.T) {
	t.Parallel()
	// Two islands: a→b chained, and c alone. dz/dq and dg/dx are exactly
	// zero, with no error.
	m := model.New()
	if err := m.AddComponent(scalarComp(t, "a", "x", "y", 3.0)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := m.AddComponent(scalarComp(t, "b", "y", "z", 1.0)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := m.AddComponent(scalarComp(t, "c", "q", "g", 5.0)); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := m.Connect("a.y", "b.y"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s := newSolver(t, m)

	res, err := s.Totals(Request{
		Of:  []string{"b.z", "c.g"},
		Wrt: []string{"a.x", "c.q"},
	})
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}

	if got := res.Block("b.z", "c.q").At(0, 0); got != 0 {
		t.Errorf("dz/dq = %v, want exactly 0", got)
	}
	if got := res.Block("c.g", "a.x").At(0, 0); got != 0 {
		t.Errorf("dg/dx = %v, want exactly 0", got)
	}
	if got := res.Block("b.z", "a.x").At(0, 0); !approx(got, 3.0) {
		t.Errorf("dz/dx = %v, want 3", got)
	}
	if got := res.Block("c.g", "c.q").At(0, 0); !approx(got, 5.0) {
		t.Errorf("dg/dq = %v, want 5", got)
	}

	wantZero := map[[2]string]bool{
		{"b.z", "c.q"}: true,
		{"c.g", "a.x"}: true,
	}
	if len(res.ZeroBlocks) != 2 {
		t.Fatalf("ZeroBlocks = %v, want 2 pairs", res.ZeroBlocks)
	}
	for _, zb := range res.ZeroBlocks {
		if !wantZero[zb] {
			t.Errorf("unexpected zero block %v", zb)
		}
	}
}
