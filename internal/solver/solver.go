// Package solver provides dense linear system solving for the equilibrium
// computations. Every N-firm first-order-condition system goes through here.
package solver

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingular indicates the system has no unique solution.
var ErrSingular = errors.New("no unique solution")

// pivotEpsilon is the smallest pivot magnitude accepted after row swapping.
// Anything below it signals a singular (or numerically singular) system.
const pivotEpsilon = 1e-10

// Solve solves the dense linear system a·x = b using Gaussian elimination
// with partial pivoting. The inputs are not modified. Returns ErrSingular
// when no unique solution exists; never returns NaN components.
func Solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 {
		return nil, fmt.Errorf("empty system")
	}
	if len(b) != n {
		return nil, fmt.Errorf("matrix is %dx%d but vector has %d entries", n, len(a[0]), len(b))
	}

	// Work on an augmented copy so callers keep their inputs.
	m := make([][]float64, n)
	for i := range m {
		if len(a[i]) != n {
			return nil, fmt.Errorf("matrix row %d has %d entries, want %d", i, len(a[i]), n)
		}
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		// Partial pivoting: swap toward the largest-magnitude candidate.
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		m[col], m[pivot] = m[pivot], m[col]

		if math.Abs(m[col][col]) < pivotEpsilon {
			return nil, ErrSingular
		}

		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			if factor == 0 {
				continue
			}
			for k := col; k <= n; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	// Back-substitution.
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

// Invert computes the inverse of a square matrix by solving n systems
// against the identity columns. Returns ErrSingular for singular input.
func Invert(a [][]float64) ([][]float64, error) {
	n := len(a)
	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = make([]float64, n)
	}
	e := make([]float64, n)
	for col := 0; col < n; col++ {
		for i := range e {
			e[i] = 0
		}
		e[col] = 1
		x, err := Solve(a, e)
		if err != nil {
			return nil, err
		}
		for row := 0; row < n; row++ {
			inv[row][col] = x[row]
		}
	}
	return inv, nil
}
