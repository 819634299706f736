package equilibrium

import (
	"errors"
	"fmt"
	"math"

	"github.com/MJE43/oligopoly-sim-go/internal/demand"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
	"github.com/MJE43/oligopoly-sim-go/internal/solver"
)

// Cournot computes the N-firm quantity-setting Nash equilibrium. Only linear
// demand has a closed form; the other demand forms are flagged
// not-calculable by design rather than approximated numerically.
func Cournot(p params.Realized) NFirm {
	n := len(p.LinearCosts)
	if n < 2 {
		return notCalculable(fmt.Sprintf("cournot equilibrium requires at least 2 firms, got %d", n))
	}
	if !p.Demand.IsLinear() {
		return notCalculable(fmt.Sprintf("cournot equilibrium has no closed form for %q demand; only linear demand is analytically solvable", p.Demand.Form))
	}

	// First-order conditions: a_i - 2(b_i+d_i)·q_i - gamma·b_i·Σ_{j!=i} q_j - c_i = 0.
	a := make([][]float64, n)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		bi := slopeFor(p, i)
		a[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				a[i][j] = 2 * (bi + p.QuadraticCosts[i])
			} else {
				a[i][j] = p.Gamma * bi
			}
		}
		rhs[i] = interceptFor(p, i) - p.LinearCosts[i]
	}

	quantities, err := solver.Solve(a, rhs)
	if err != nil {
		if errors.Is(err, solver.ErrSingular) {
			return notCalculable("cournot first-order conditions form a singular system")
		}
		return notCalculable(fmt.Sprintf("cournot system could not be solved: %v", err))
	}

	total := 0.0
	for i := range quantities {
		quantities[i] = math.Max(0, quantities[i])
		total += quantities[i]
	}

	prices := make([]float64, n)
	profits := make([]float64, n)
	for i := 0; i < n; i++ {
		spec := demand.Spec{Form: demand.FormLinear, Intercept: interceptFor(p, i), Slope: slopeFor(p, i)}
		prices[i] = spec.PriceFor(quantities, i, p.Gamma)
		profits[i] = prices[i]*quantities[i] - firmCost(p, i, quantities[i])
	}

	return NFirm{
		Calculable:    true,
		Quantities:    quantities,
		Prices:        prices,
		Profits:       profits,
		TotalQuantity: total,
	}
}
