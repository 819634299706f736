// Package equilibrium computes the analytical benchmarks that agent behavior
// is compared against: two-firm Nash, multiplant-monopoly cooperative,
// N-firm Cournot and Bertrand, and the duopoly limit-pricing classification.
//
// All operations are pure functions of a realized parameter snapshot.
// Benchmarks that have no closed form for a given demand/cost combination
// are returned as values flagged not-calculable, not as errors, because
// callers request them speculatively.
package equilibrium

import (
	"errors"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// ErrInvalidParameters indicates the legacy two-firm closed form has no
// interior equilibrium for the given parameters (determinant <= 0).
var ErrInvalidParameters = errors.New("invalid parameters: no interior equilibrium")

// homogeneousTolerance is how close gamma must be to 1 before goods are
// treated as perfect substitutes in the Bertrand solver.
const homogeneousTolerance = 1e-4

// costTieTolerance decides marginal-cost ties when splitting homogeneous
// Bertrand demand or cooperative production.
const costTieTolerance = 1e-9

// Nash is the legacy two-firm closed-form Nash equilibrium.
type Nash struct {
	Quantity1 float64 `json:"quantity1"`
	Quantity2 float64 `json:"quantity2"`
	Price     float64 `json:"price"`
	Profit1   float64 `json:"profit1"`
	Profit2   float64 `json:"profit2"`
}

// Cooperative is the legacy two-firm multiplant-monopoly equilibrium.
type Cooperative struct {
	TotalQuantity float64 `json:"totalQuantity"`
	Quantity1     float64 `json:"quantity1"`
	Quantity2     float64 `json:"quantity2"`
	Price         float64 `json:"price"`
	TotalProfit   float64 `json:"totalProfit"`
}

// NFirm is an N-firm equilibrium in either competition mode. When the
// requested benchmark has no closed form, Calculable is false and Reason
// explains why.
type NFirm struct {
	Calculable    bool      `json:"calculable"`
	Reason        string    `json:"reason,omitempty"`
	Quantities    []float64 `json:"quantities,omitempty"`
	Prices        []float64 `json:"prices,omitempty"`
	Profits       []float64 `json:"profits,omitempty"`
	TotalQuantity float64   `json:"totalQuantity"`
}

// notCalculable builds the flagged result for benchmarks outside the
// analytically solvable region.
func notCalculable(reason string) NFirm {
	return NFirm{Calculable: false, Reason: reason}
}

// Region classifies the duopoly cost-asymmetry analysis.
type Region string

const (
	RegionInteriorDuopoly Region = "interior_duopoly"
	RegionLimitPricing    Region = "limit_pricing"
	RegionMonopoly        Region = "monopoly"
)

// LimitPricing is the duopoly-only limit-pricing classification.
type LimitPricing struct {
	Applicable     bool    `json:"applicable"`
	Reason         string  `json:"reason,omitempty"`
	AsymmetryIndex float64 `json:"asymmetryIndex"`
	ThresholdLow   float64 `json:"thresholdLow"`
	ThresholdHigh  float64 `json:"thresholdHigh"`
	Region         Region  `json:"region,omitempty"`
}

// interceptFor returns firm i's demand intercept, honoring per-firm
// overrides when present.
func interceptFor(p params.Realized, i int) float64 {
	if i < len(p.FirmIntercepts) {
		return p.FirmIntercepts[i]
	}
	return p.Demand.Intercept
}

// slopeFor returns firm i's demand slope, honoring per-firm overrides.
func slopeFor(p params.Realized, i int) float64 {
	if i < len(p.FirmSlopes) {
		return p.FirmSlopes[i]
	}
	return p.Demand.Slope
}

// firmCost is the total cost c·q + d·q² for firm i at quantity q.
func firmCost(p params.Realized, i int, q float64) float64 {
	return p.LinearCosts[i]*q + p.QuadraticCosts[i]*q*q
}
