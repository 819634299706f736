package equilibrium

import (
	"fmt"
	"math"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// TwoFirmCooperative computes the multiplant-monopoly equilibrium: the two
// firms act as one entity maximizing joint profit on a single linear demand
// curve. The branching by quadratic-cost presence exists because the
// unconstrained first-order system is undefined when a plant's marginal cost
// does not increase in quantity.
func TwoFirmCooperative(p params.Realized) (Cooperative, error) {
	if !p.Demand.IsLinear() {
		return Cooperative{}, fmt.Errorf("cooperative closed form requires linear demand, got %q", p.Demand.Form)
	}
	if len(p.LinearCosts) < 2 {
		return Cooperative{}, fmt.Errorf("cooperative closed form requires at least 2 firms, got %d", len(p.LinearCosts))
	}

	a := p.Demand.Intercept
	b := p.Demand.Slope
	c1, c2 := p.LinearCosts[0], p.LinearCosts[1]
	d1, d2 := p.QuadraticCosts[0], p.QuadraticCosts[1]

	var q1, q2 float64
	switch {
	case d1 > 0 && d2 > 0:
		q1, q2 = bothQuadraticSplit(a, b, c1, c2, d1, d2)
	case d1 > 0:
		q2, q1 = oneQuadraticSplit(a, b, c2, c1, d1)
	case d2 > 0:
		q1, q2 = oneQuadraticSplit(a, b, c1, c2, d2)
	default:
		q1, q2 = bothLinearSplit(a, b, c1, c2)
	}

	q1 = math.Max(0, q1)
	q2 = math.Max(0, q2)
	total := q1 + q2
	price := p.Demand.Price(total)

	return Cooperative{
		TotalQuantity: total,
		Quantity1:     q1,
		Quantity2:     q2,
		Price:         price,
		TotalProfit:   price*total - firmCost(p, 0, q1) - firmCost(p, 1, q2),
	}, nil
}

// bothQuadraticSplit handles two increasing-marginal-cost plants: the
// monopolist equalizes marginal costs across plants using the weights
// w_i = 1/(2·d_i), so the shadow marginal revenue lambda solves
// lambda·(1 + 2b·Σw_i) = a + 2b·Σ(w_i·c_i).
func bothQuadraticSplit(a, b, c1, c2, d1, d2 float64) (float64, float64) {
	w1 := 1 / (2 * d1)
	w2 := 1 / (2 * d2)
	lambda := (a + 2*b*(w1*c1+w2*c2)) / (1 + 2*b*(w1+w2))
	return math.Max(0, w1*(lambda-c1)), math.Max(0, w2*(lambda-c2))
}

// oneQuadraticSplit handles one constant-marginal-cost plant (cost cl) and
// one quadratic plant (cost cq + dq·q²). At the linear plant's interior
// optimum marginal revenue equals cl; the quadratic plant produces exactly
// up to the output where its marginal cost reaches cl, whichever plant is
// marginally cheaper near the optimum taking the rest.
// Returns (linear plant quantity, quadratic plant quantity).
func oneQuadraticSplit(a, b, cl, cq, dq float64) (float64, float64) {
	// Quadratic plant's profitable share below the linear plant's marginal cost.
	qQuad := (cl - cq) / (2 * dq)
	if qQuad <= 0 {
		// The quadratic plant is more expensive from its first unit onward;
		// the linear plant runs the monopoly alone.
		return math.Max(0, (a-cl)/(2*b)), 0
	}

	total := (a - cl) / (2 * b)
	if qQuad >= total {
		// The quadratic plant undercuts the linear plant over the whole
		// relevant range; it runs the monopoly alone.
		q := math.Max(0, (a-cq)/(2*(b+dq)))
		return 0, q
	}
	return total - qQuad, qQuad
}

// bothLinearSplit handles two constant-marginal-cost plants: the strictly
// cheaper one produces everything, and an exact cost tie splits production
// evenly.
func bothLinearSplit(a, b, c1, c2 float64) (float64, float64) {
	switch {
	case math.Abs(c1-c2) <= costTieTolerance:
		q := math.Max(0, (a-c1)/(2*b))
		return q / 2, q / 2
	case c1 < c2:
		return math.Max(0, (a-c1)/(2*b)), 0
	default:
		return 0, math.Max(0, (a-c2)/(2*b))
	}
}
