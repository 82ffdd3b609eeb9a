package solve

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/papapumpkin/graviton/internal/jacobian"
)

// checkSingular scans the assembled operator for structural problems before
// factorization: NaN entries and all-zero rows or columns. Each finding is
// reported with the state/residual variable owning the offending index, so
// the user can tell which component's partials are missing or broken.
func checkSingular(asm *jacobian.Assembler, m *mat.Dense) error {
	n, _ := m.Dims()

	var nanVars []string
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.IsNaN(m.At(i, j)) {
				name, _ := asm.StateAt(i)
				if !seen[name] {
					seen[name] = true
					nanVars = append(nanVars, name)
				}
				break
			}
		}
	}
	if len(nanVars) > 0 {
		return fmt.Errorf("%w: NaN entries in rows for states/residuals [%s]",
			ErrSingularJacobian, strings.Join(nanVars, ", "))
	}

	for i := 0; i < n; i++ {
		zero := true
		for j := 0; j < n; j++ {
			if m.At(i, j) != 0 {
				zero = false
				break
			}
		}
		if zero {
			name, local := asm.StateAt(i)
			return fmt.Errorf("%w: row for state/residual %q index %d is entirely zero",
				ErrSingularJacobian, name, local)
		}
	}
	for j := 0; j < n; j++ {
		zero := true
		for i := 0; i < n; i++ {
			if m.At(i, j) != 0 {
				zero = false
				break
			}
		}
		if zero {
			name, local := asm.StateAt(j)
			return fmt.Errorf("%w: column for state %q index %d is entirely zero",
				ErrSingularJacobian, name, local)
		}
	}
	return nil
}
