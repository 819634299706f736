// Package market turns one round's decisions into realized quantities,
// prices, costs, and profits for every firm.
package market

import (
	"fmt"
	"math"

	"github.com/MJE43/oligopoly-sim-go/internal/params"
	"github.com/MJE43/oligopoly-sim-go/internal/solver"
)

// Mode is the competition mode: firms either set quantities or prices.
type Mode string

const (
	ModeQuantity Mode = "quantity"
	ModePrice    Mode = "price"
)

// homogeneousGamma mirrors the Bertrand solver's perfect-substitute cutoff.
const homogeneousGamma = 1e-4

// priceTieTolerance decides which firms share the lowest posted price in a
// homogeneous market.
const priceTieTolerance = 1e-6

// Decision is one firm's submitted control variable for a round: a quantity
// under quantity-setting, a price under price-setting. Rationale and
// PromptAudit travel along for audit and are never interpreted here.
type Decision struct {
	Value       float64 `json:"value"`
	Rationale   string  `json:"rationale,omitempty"`
	PromptAudit string  `json:"promptAudit,omitempty"`
}

// Bounds optionally clamps submitted decisions. Nil fields are unbounded.
type Bounds struct {
	MinQuantity *float64 `json:"minQuantity,omitempty" yaml:"minQuantity,omitempty"`
	MaxQuantity *float64 `json:"maxQuantity,omitempty" yaml:"maxQuantity,omitempty"`
	MinPrice    *float64 `json:"minPrice,omitempty" yaml:"minPrice,omitempty"`
	MaxPrice    *float64 `json:"maxPrice,omitempty" yaml:"maxPrice,omitempty"`
}

// FirmResult is one firm's realized outcome for a round. Quantity and price
// are never negative; profit may be.
type FirmResult struct {
	Firm        int     `json:"firm"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	Profit      float64 `json:"profit"`
	Rationale   string  `json:"rationale,omitempty"`
	PromptAudit string  `json:"promptAudit,omitempty"`
}

// TranscriptEntry is one communication-phase message.
type TranscriptEntry struct {
	Firm int    `json:"firm"`
	Text string `json:"text"`
}

// RoundResult is the immutable outcome of one round. The canonical
// representation is the per-firm slice; the legacy flat two-firm fields are
// projected only when the result is serialized (see MarshalJSON).
type RoundResult struct {
	Round         int               `json:"round"`
	Firms         []FirmResult      `json:"firms"`
	TotalQuantity float64           `json:"totalQuantity"`
	Parameters    *params.Realized  `json:"parameters,omitempty"`
	Transcript    []TranscriptEntry `json:"transcript,omitempty"`
	Timestamp     int64             `json:"timestamp"`
}

// Compute calculates every firm's realized outcome from the submitted
// decisions and the round's realized parameters. Decisions are positional:
// decisions[i] belongs to firm i+1.
func Compute(mode Mode, decisions []Decision, p params.Realized, bounds Bounds) ([]FirmResult, error) {
	n := len(decisions)
	if n == 0 {
		return nil, fmt.Errorf("no decisions submitted")
	}
	if len(p.LinearCosts) < n || len(p.QuadraticCosts) < n {
		return nil, fmt.Errorf("parameter set covers %d firms, got %d decisions", len(p.LinearCosts), n)
	}

	values := make([]float64, n)
	for i, d := range decisions {
		values[i] = clampDecision(mode, d.Value, bounds)
	}

	var quantities, prices []float64
	var err error
	switch mode {
	case ModeQuantity:
		quantities = values
		prices = pricesFromQuantities(quantities, p)
	case ModePrice:
		prices = values
		quantities, err = quantitiesFromPrices(prices, p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown competition mode %q", mode)
	}

	results := make([]FirmResult, n)
	for i := 0; i < n; i++ {
		q := math.Max(0, quantities[i])
		price := math.Max(0, prices[i])
		cost := p.LinearCosts[i]*q + p.QuadraticCosts[i]*q*q
		results[i] = FirmResult{
			Firm:        i + 1,
			Quantity:    q,
			Price:       price,
			Profit:      price*q - cost,
			Rationale:   decisions[i].Rationale,
			PromptAudit: decisions[i].PromptAudit,
		}
	}
	return results, nil
}

// clampDecision applies the configured bounds for the mode, then the
// non-negativity invariant.
func clampDecision(mode Mode, v float64, b Bounds) float64 {
	var lo, hi *float64
	if mode == ModeQuantity {
		lo, hi = b.MinQuantity, b.MaxQuantity
	} else {
		lo, hi = b.MinPrice, b.MaxPrice
	}
	if lo != nil && v < *lo {
		v = *lo
	}
	if hi != nil && v > *hi {
		v = *hi
	}
	return math.Max(0, v)
}

// pricesFromQuantities prices each firm at its effective quantity under the
// configured demand form, honoring per-firm intercept/slope overrides.
func pricesFromQuantities(quantities []float64, p params.Realized) []float64 {
	prices := make([]float64, len(quantities))
	for i := range quantities {
		spec := p.Demand
		if i < len(p.FirmIntercepts) {
			spec.Intercept = p.FirmIntercepts[i]
		}
		if i < len(p.FirmSlopes) {
			spec.Slope = p.FirmSlopes[i]
		}
		prices[i] = spec.PriceFor(quantities, i, p.Gamma)
	}
	return prices
}

// quantitiesFromPrices inverts the demand relation under price-setting.
// The three regimes mirror the Bertrand solver: homogeneous goods split the
// lowest-price demand evenly; differentiated goods with a shared slope use
// the closed-form inverse; per-firm slopes require solving the firms'
// inverse demands jointly, which is why quantity recovery happens in one
// pass after every price is known.
func quantitiesFromPrices(prices []float64, p params.Realized) ([]float64, error) {
	if !p.Demand.IsLinear() {
		return nil, fmt.Errorf("price-setting requires linear demand, got %q", p.Demand.Form)
	}

	n := len(prices)
	if math.Abs(p.Gamma-1) < homogeneousGamma {
		return homogeneousQuantities(prices, p), nil
	}

	if len(p.FirmSlopes) == 0 {
		return sharedSlopeQuantities(prices, p), nil
	}

	// Per-firm slopes: solve B·q = a - p for all firms at once.
	bMat := make([][]float64, n)
	rhs := make([]float64, n)
	for i := 0; i < n; i++ {
		bi := p.FirmSlopes[i]
		bMat[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				bMat[i][j] = bi
			} else {
				bMat[i][j] = p.Gamma * bi
			}
		}
		rhs[i] = interceptFor(p, i) - prices[i]
	}
	quantities, err := solver.Solve(bMat, rhs)
	if err != nil {
		return nil, fmt.Errorf("inverse demand system: %w", err)
	}
	for i := range quantities {
		quantities[i] = math.Max(0, quantities[i])
	}
	return quantities, nil
}

// homogeneousQuantities allocates total demand at the lowest posted price to
// the firms tied (within tolerance) at that price. Perfect substitutes trade
// on one market demand curve, so per-firm intercept and slope overrides do
// not apply in this regime.
func homogeneousQuantities(prices []float64, p params.Realized) []float64 {
	minPrice := prices[0]
	for _, v := range prices[1:] {
		if v < minPrice {
			minPrice = v
		}
	}

	var winners []int
	for i, v := range prices {
		if v-minPrice <= priceTieTolerance {
			winners = append(winners, i)
		}
	}

	total := math.Max(0, (p.Demand.Intercept-minPrice)/p.Demand.Slope)
	share := total / float64(len(winners))

	quantities := make([]float64, len(prices))
	for _, i := range winners {
		quantities[i] = share
	}
	return quantities
}

// sharedSlopeQuantities is the closed-form Singh–Vives-style inverse for a
// single shared demand slope: q = D·(a - p) with the symmetric closed-form
// entries of D = B⁻¹.
func sharedSlopeQuantities(prices []float64, p params.Realized) []float64 {
	n := len(prices)
	b := p.Demand.Slope
	g := p.Gamma
	denom := b * (1 - g) * (1 + float64(n-1)*g)
	diag := (1 + float64(n-2)*g) / denom
	off := -g / denom

	quantities := make([]float64, n)
	for i := 0; i < n; i++ {
		q := diag * (interceptFor(p, i) - prices[i])
		for j := 0; j < n; j++ {
			if j != i {
				q += off * (interceptFor(p, j) - prices[j])
			}
		}
		quantities[i] = math.Max(0, q)
	}
	return quantities
}

func interceptFor(p params.Realized, i int) float64 {
	if i < len(p.FirmIntercepts) {
		return p.FirmIntercepts[i]
	}
	return p.Demand.Intercept
}
