package equilibrium

import (
	"fmt"
	"math"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// AnalyzeLimitPricing classifies a duopoly by cost asymmetry into interior
// duopoly, limit pricing, or monopoly. The asymmetry index compares the
// firms' effective demand intercepts alpha_i = a - c_i; the two gamma-
// dependent thresholds shrink toward zero as goods become closer
// substitutes. For anything other than exactly two firms the analysis is
// inapplicable, which is reported in the result rather than as an error.
func AnalyzeLimitPricing(p params.Realized) LimitPricing {
	n := len(p.LinearCosts)
	if n != 2 {
		return LimitPricing{Reason: fmt.Sprintf("limit-pricing analysis applies to duopolies only, got %d firms", n)}
	}
	if !p.Demand.IsLinear() {
		return LimitPricing{Reason: fmt.Sprintf("limit-pricing analysis requires linear demand, got %q", p.Demand.Form)}
	}

	a := p.Demand.Intercept
	alpha1 := a - p.LinearCosts[0]
	alpha2 := a - p.LinearCosts[1]
	if math.Abs(alpha2) < 1e-12 {
		return LimitPricing{Reason: "weaker firm's effective intercept is zero; asymmetry index undefined"}
	}

	g := p.Gamma
	index := (alpha1 - alpha2) / alpha2
	low := 1 - g/(2-g*g)
	high := 1 - g/2

	region := RegionInteriorDuopoly
	switch {
	case index >= high:
		region = RegionMonopoly
	case index >= low:
		region = RegionLimitPricing
	}

	return LimitPricing{
		Applicable:     true,
		AsymmetryIndex: index,
		ThresholdLow:   low,
		ThresholdHigh:  high,
		Region:         region,
	}
}
