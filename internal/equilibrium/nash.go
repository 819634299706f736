package equilibrium

import (
	"fmt"
	"math"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// TwoFirmNash computes the legacy two-firm closed-form Cournot Nash
// equilibrium under linear homogeneous demand. Unlike the N-firm solvers it
// reports degenerate parameter sets as errors, because there is no sensible
// degraded answer for the closed form.
func TwoFirmNash(p params.Realized) (Nash, error) {
	if !p.Demand.IsLinear() {
		return Nash{}, fmt.Errorf("two-firm closed form requires linear demand, got %q", p.Demand.Form)
	}
	if len(p.LinearCosts) < 2 {
		return Nash{}, fmt.Errorf("two-firm closed form requires at least 2 firms, got %d", len(p.LinearCosts))
	}

	a := p.Demand.Intercept
	b := p.Demand.Slope

	// alpha_i = a - c_i, beta_i = 2(b + d_i). The FOCs form the system
	//   beta1·q1 + b·q2 = alpha1
	//   b·q1 + beta2·q2 = alpha2
	alpha1 := a - p.LinearCosts[0]
	alpha2 := a - p.LinearCosts[1]
	beta1 := 2 * (b + p.QuadraticCosts[0])
	beta2 := 2 * (b + p.QuadraticCosts[1])

	det := beta1*beta2 - b*b
	if det <= 0 {
		return Nash{}, ErrInvalidParameters
	}

	q1 := math.Max(0, (alpha1*beta2-alpha2*b)/det)
	q2 := math.Max(0, (alpha2*beta1-alpha1*b)/det)

	price := p.Demand.Price(q1 + q2)
	return Nash{
		Quantity1: q1,
		Quantity2: q2,
		Price:     price,
		Profit1:   price*q1 - firmCost(p, 0, q1),
		Profit2:   price*q2 - firmCost(p, 1, q2),
	}, nil
}
