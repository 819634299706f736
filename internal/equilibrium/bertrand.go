package equilibrium

import (
	"errors"
	"fmt"
	"math"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
	"github.com/MJE43/oligopoly-sim-go/internal/solver"
)

// Bertrand computes the N-firm price-setting Nash equilibrium. Three
// regimes: quadratic costs make the first-order system non-linear in price
// and quantity jointly (not calculable); homogeneous goods collapse to
// minimum-marginal-cost pricing; differentiated goods with linear costs
// solve a price-space FOC system built from the inverted demand-coefficient
// matrix.
func Bertrand(p params.Realized) NFirm {
	n := len(p.LinearCosts)
	if n < 2 {
		return notCalculable(fmt.Sprintf("bertrand equilibrium requires at least 2 firms, got %d", n))
	}
	if !p.Demand.IsLinear() {
		return notCalculable(fmt.Sprintf("bertrand equilibrium has no closed form for %q demand; only linear demand is analytically solvable", p.Demand.Form))
	}
	for i, d := range p.QuadraticCosts {
		if d > 0 {
			return notCalculable(fmt.Sprintf("bertrand equilibrium is not analytically tractable with quadratic costs (firm %d)", i+1))
		}
	}

	if math.Abs(p.Gamma-1) < homogeneousTolerance {
		return homogeneousBertrand(p)
	}
	return differentiatedBertrand(p)
}

// homogeneousBertrand handles perfect substitutes: price falls to the
// minimum marginal cost, demand at that price splits evenly among the firms
// tied at the minimum, everyone else sells nothing. Perfect substitutes
// trade on one market demand curve, so per-firm intercept and slope
// overrides do not apply in this regime.
func homogeneousBertrand(p params.Realized) NFirm {
	n := len(p.LinearCosts)
	minCost := p.LinearCosts[0]
	for _, c := range p.LinearCosts[1:] {
		if c < minCost {
			minCost = c
		}
	}

	var winners []int
	for i, c := range p.LinearCosts {
		if c-minCost <= costTieTolerance {
			winners = append(winners, i)
		}
	}

	price := math.Max(0, minCost)
	total := math.Max(0, (p.Demand.Intercept-price)/p.Demand.Slope)
	share := total / float64(len(winners))

	quantities := make([]float64, n)
	prices := make([]float64, n)
	profits := make([]float64, n)
	for _, i := range winners {
		quantities[i] = share
	}
	for i := 0; i < n; i++ {
		prices[i] = price
		profits[i] = (price - p.LinearCosts[i]) * quantities[i]
	}

	return NFirm{
		Calculable:    true,
		Quantities:    quantities,
		Prices:        prices,
		Profits:       profits,
		TotalQuantity: total,
	}
}

// differentiatedBertrand solves the price-space first-order conditions for
// gamma < 1. With inverse demand p = a - B·q (B_ii = b_i, B_ij = gamma·b_i),
// direct demand is q = D·(a - p) with D = B⁻¹, and firm i's FOC
// q_i = D_ii·(p_i - c_i) yields the linear system
//
//	Σ_j D_ij·p_j + D_ii·p_i = Σ_j D_ij·a_j + D_ii·c_i.
func differentiatedBertrand(p params.Realized) NFirm {
	n := len(p.LinearCosts)

	d, err := demandSensitivity(p)
	if err != nil {
		return notCalculable(fmt.Sprintf("bertrand demand-coefficient matrix could not be inverted: %v", err))
	}

	a := make([]float64, n)
	for i := range a {
		a[i] = interceptFor(p, i)
	}

	system := make([][]float64, n)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		system[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			system[i][j] = d[i][j]
			rhs[i] += d[i][j] * a[j]
		}
		system[i][i] += d[i][i]
		rhs[i] += d[i][i] * p.LinearCosts[i]
	}

	prices, err := solver.Solve(system, rhs)
	if err != nil {
		if errors.Is(err, solver.ErrSingular) {
			return notCalculable("bertrand first-order conditions form a singular system")
		}
		return notCalculable(fmt.Sprintf("bertrand system could not be solved: %v", err))
	}

	quantities := make([]float64, n)
	profits := make([]float64, n)
	total := 0.0
	for i := range prices {
		prices[i] = math.Max(0, prices[i])
	}
	for i := 0; i < n; i++ {
		q := 0.0
		for j := 0; j < n; j++ {
			q += d[i][j] * (a[j] - prices[j])
		}
		quantities[i] = math.Max(0, q)
		total += quantities[i]
		profits[i] = (prices[i] - p.LinearCosts[i]) * quantities[i]
	}

	return NFirm{
		Calculable:    true,
		Quantities:    quantities,
		Prices:        prices,
		Profits:       profits,
		TotalQuantity: total,
	}
}

// demandSensitivity returns D = B⁻¹. When every firm shares one demand
// slope the inverse of B = b·((1-gamma)·I + gamma·J) has a closed form, so
// the full matrix inversion is only needed for per-firm slopes.
func demandSensitivity(p params.Realized) ([][]float64, error) {
	n := len(p.LinearCosts)

	if len(p.FirmSlopes) == 0 {
		b := p.Demand.Slope
		g := p.Gamma
		denom := b * (1 - g) * (1 + float64(n-1)*g)
		diag := (1 + float64(n-2)*g) / denom
		off := -g / denom

		d := make([][]float64, n)
		for i := range d {
			d[i] = make([]float64, n)
			for j := range d[i] {
				if i == j {
					d[i][j] = diag
				} else {
					d[i][j] = off
				}
			}
		}
		return d, nil
	}

	bMat := make([][]float64, n)
	for i := 0; i < n; i++ {
		bi := slopeFor(p, i)
		bMat[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				bMat[i][j] = bi
			} else {
				bMat[i][j] = p.Gamma * bi
			}
		}
	}
	return solver.Invert(bMat)
}
