// Package demand implements the market demand functional forms and their
// differentiated-product variants.
package demand

import (
	"fmt"
	"math"
)

// Form identifies a demand functional form. The set is closed: every switch
// over Form in the solvers and the round calculator handles all four cases.
type Form string

const (
	// FormLinear is P = max(0, a - b·Q).
	FormLinear Form = "linear"
	// FormIsoelastic is the constant-elasticity form P = A·Q^(-1/sigma).
	FormIsoelastic Form = "isoelastic"
	// FormLogit is P = max(0, a - b·ln(Q)).
	FormLogit Form = "logit"
	// FormExponential is P = A·e^(-b·Q).
	FormExponential Form = "exponential"
)

// Spec is a tagged demand specification. Which fields apply depends on Form:
// linear and logit use Intercept/Slope, isoelastic uses Scale/Elasticity,
// exponential uses Scale/Slope (slope acting as the decay rate).
type Spec struct {
	Form       Form    `json:"form" yaml:"form"`
	Intercept  float64 `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Slope      float64 `json:"slope,omitempty" yaml:"slope,omitempty"`
	Scale      float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Elasticity float64 `json:"elasticity,omitempty" yaml:"elasticity,omitempty"`
}

// Validate checks the coefficients required by the form are strictly positive.
func (s Spec) Validate() error {
	switch s.Form {
	case FormLinear:
		if s.Intercept <= 0 || s.Slope <= 0 {
			return fmt.Errorf("linear demand requires positive intercept and slope, got a=%v b=%v", s.Intercept, s.Slope)
		}
	case FormIsoelastic:
		if s.Scale <= 0 || s.Elasticity <= 0 {
			return fmt.Errorf("isoelastic demand requires positive scale and elasticity, got A=%v sigma=%v", s.Scale, s.Elasticity)
		}
	case FormLogit:
		if s.Intercept <= 0 || s.Slope <= 0 {
			return fmt.Errorf("logit demand requires positive intercept and coefficient, got a=%v b=%v", s.Intercept, s.Slope)
		}
	case FormExponential:
		if s.Scale <= 0 || s.Slope <= 0 {
			return fmt.Errorf("exponential demand requires positive scale and decay rate, got A=%v b=%v", s.Scale, s.Slope)
		}
	default:
		return fmt.Errorf("unknown demand form %q", s.Form)
	}
	return nil
}

// IsLinear reports whether the closed-form equilibrium machinery applies.
func (s Spec) IsLinear() bool { return s.Form == FormLinear }

// Price computes the market price at effective quantity q. Non-positive
// quantities map to large sentinel prices for the forms that would otherwise
// produce infinity or NaN.
func (s Spec) Price(q float64) float64 {
	switch s.Form {
	case FormLinear:
		return math.Max(0, s.Intercept-s.Slope*q)
	case FormIsoelastic:
		if q <= 0 {
			return s.Scale * 1000
		}
		return s.Scale * math.Pow(q, -1/s.Elasticity)
	case FormLogit:
		if q <= 0 {
			return 10 * s.Intercept
		}
		return math.Max(0, s.Intercept-s.Slope*math.Log(q))
	case FormExponential:
		return s.Scale * math.Exp(-s.Slope*q)
	default:
		return 0
	}
}

// EffectiveQuantity is firm i's own quantity plus gamma times everyone
// else's: q_i + gamma·sum_{j != i} q_j. With gamma = 1 this collapses to
// total market quantity; with gamma = 0 firms occupy independent markets.
func EffectiveQuantity(quantities []float64, i int, gamma float64) float64 {
	eff := quantities[i]
	for j, q := range quantities {
		if j != i {
			eff += gamma * q
		}
	}
	return eff
}

// PriceFor computes firm i's own price in a differentiated market: the
// configured price formula evaluated at the firm's effective quantity.
func (s Spec) PriceFor(quantities []float64, i int, gamma float64) float64 {
	return s.Price(EffectiveQuantity(quantities, i, gamma))
}
