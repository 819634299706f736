package market

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/MJE43/oligopoly-sim-go/internal/demand"
	"github.com/MJE43/oligopoly-sim-go/internal/equilibrium"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

func linearMarket(gamma float64, costs ...float64) params.Realized {
	return params.Realized{
		Demand:         demand.Spec{Form: demand.FormLinear, Intercept: 100, Slope: 1},
		Gamma:          gamma,
		LinearCosts:    costs,
		QuadraticCosts: make([]float64, len(costs)),
	}
}

func decisionsOf(values ...float64) []Decision {
	out := make([]Decision, len(values))
	for i, v := range values {
		out[i] = Decision{Value: v}
	}
	return out
}

func TestQuantityModeReproducesNashEquilibrium(t *testing.T) {
	p := linearMarket(1, 10, 10)

	nash, err := equilibrium.TwoFirmNash(p)
	if err != nil {
		t.Fatalf("TwoFirmNash failed: %v", err)
	}

	// Feeding the equilibrium's own quantities back as decisions must
	// reproduce its price and profit for every firm.
	results, err := Compute(ModeQuantity, decisionsOf(nash.Quantity1, nash.Quantity2), p, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i, want := range []struct{ price, profit float64 }{
		{nash.Price, nash.Profit1},
		{nash.Price, nash.Profit2},
	} {
		if math.Abs(results[i].Price-want.price) > 1e-9 {
			t.Errorf("firm %d price = %v, want %v", i+1, results[i].Price, want.price)
		}
		if math.Abs(results[i].Profit-want.profit) > 1e-9 {
			t.Errorf("firm %d profit = %v, want %v", i+1, results[i].Profit, want.profit)
		}
	}
}

func TestPriceModeReproducesBertrandEquilibrium(t *testing.T) {
	p := linearMarket(0.5, 10, 14)

	eq := equilibrium.Bertrand(p)
	if !eq.Calculable {
		t.Fatalf("Bertrand not calculable: %s", eq.Reason)
	}

	results, err := Compute(ModePrice, decisionsOf(eq.Prices...), p, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i := range results {
		if math.Abs(results[i].Quantity-eq.Quantities[i]) > 1e-6 {
			t.Errorf("firm %d quantity = %v, want %v", i+1, results[i].Quantity, eq.Quantities[i])
		}
		if math.Abs(results[i].Profit-eq.Profits[i]) > 1e-6 {
			t.Errorf("firm %d profit = %v, want %v", i+1, results[i].Profit, eq.Profits[i])
		}
	}
}

func TestQuantityModeDifferentiatedPrices(t *testing.T) {
	p := linearMarket(0.5, 10, 10)

	results, err := Compute(ModeQuantity, decisionsOf(30, 30), p, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// Each firm: a - b*(30 + 0.5*30) = 55.
	for i := range results {
		if math.Abs(results[i].Price-55) > 1e-9 {
			t.Errorf("firm %d price = %v, want 55", i+1, results[i].Price)
		}
	}
}

func TestPriceModeHomogeneousSplit(t *testing.T) {
	p := linearMarket(1, 10, 10, 10)

	// Two firms tie at the lowest price; the third is undercut.
	results, err := Compute(ModePrice, decisionsOf(20, 20, 30), p, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if math.Abs(results[0].Quantity-40) > 1e-9 || math.Abs(results[1].Quantity-40) > 1e-9 {
		t.Errorf("tied firms got %v and %v, want 40 each", results[0].Quantity, results[1].Quantity)
	}
	if results[2].Quantity != 0 {
		t.Errorf("undercut firm got %v, want 0", results[2].Quantity)
	}
}

func TestPriceModeHomogeneousIgnoresFirmOverrides(t *testing.T) {
	base := linearMarket(1, 10, 10)
	withOverrides := base
	withOverrides.FirmIntercepts = []float64{120, 80}
	withOverrides.FirmSlopes = []float64{2, 0.5}

	// With perfect substitutes there is one market demand curve, so the
	// per-firm overrides have no effect on the split.
	prices := decisionsOf(20, 20)
	a, err := Compute(ModePrice, prices, base, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	b, err := Compute(ModePrice, prices, withOverrides, Bounds{})
	if err != nil {
		t.Fatalf("Compute with overrides failed: %v", err)
	}
	for i := range a {
		if math.Abs(a[i].Quantity-b[i].Quantity) > 1e-9 {
			t.Errorf("firm %d quantity = %v with overrides, want %v", i+1, b[i].Quantity, a[i].Quantity)
		}
	}
}

func TestPriceModePerFirmSlopesMatchSharedClosedForm(t *testing.T) {
	shared := linearMarket(0.4, 8, 12)
	perFirm := shared
	perFirm.FirmSlopes = []float64{1, 1}

	prices := decisionsOf(40, 45)
	a, err := Compute(ModePrice, prices, shared, Bounds{})
	if err != nil {
		t.Fatalf("shared-slope Compute failed: %v", err)
	}
	b, err := Compute(ModePrice, prices, perFirm, Bounds{})
	if err != nil {
		t.Fatalf("per-firm Compute failed: %v", err)
	}
	for i := range a {
		if math.Abs(a[i].Quantity-b[i].Quantity) > 1e-6 {
			t.Errorf("firm %d: closed form %v != joint solve %v", i+1, a[i].Quantity, b[i].Quantity)
		}
	}
}

func TestPriceModeRequiresLinearDemand(t *testing.T) {
	p := linearMarket(0.5, 10, 10)
	p.Demand = demand.Spec{Form: demand.FormExponential, Scale: 100, Slope: 0.1}

	if _, err := Compute(ModePrice, decisionsOf(20, 25), p, Bounds{}); err == nil {
		t.Fatal("expected error for price-setting with non-linear demand")
	}
}

func TestBoundsClamping(t *testing.T) {
	p := linearMarket(1, 10, 10)
	maxQ := 25.0
	minQ := 5.0
	bounds := Bounds{MinQuantity: &minQ, MaxQuantity: &maxQ}

	results, err := Compute(ModeQuantity, decisionsOf(100, -3), p, Bounds{MinQuantity: bounds.MinQuantity, MaxQuantity: bounds.MaxQuantity})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if results[0].Quantity != 25 {
		t.Errorf("over-cap decision realized %v, want 25", results[0].Quantity)
	}
	if results[1].Quantity != 5 {
		t.Errorf("under-floor decision realized %v, want 5", results[1].Quantity)
	}
}

func TestQuantityAndPriceNeverNegative(t *testing.T) {
	p := linearMarket(1, 10, 10)

	// Flood the market: price clamps at zero, profits go negative.
	results, err := Compute(ModeQuantity, decisionsOf(200, 200), p, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	for i, r := range results {
		if r.Price < 0 || r.Quantity < 0 {
			t.Errorf("firm %d has negative price/quantity: %+v", i+1, r)
		}
		if r.Profit >= 0 {
			t.Errorf("firm %d profit = %v, expected a loss at zero price", i+1, r.Profit)
		}
	}
}

func TestNonLinearQuantityAccounting(t *testing.T) {
	p := linearMarket(1, 5, 5)
	p.Demand = demand.Spec{Form: demand.FormIsoelastic, Scale: 100, Elasticity: 2}

	results, err := Compute(ModeQuantity, decisionsOf(8, 8), p, Bounds{})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// P = 100 * 16^(-1/2) = 25 for both firms.
	for i := range results {
		if math.Abs(results[i].Price-25) > 1e-9 {
			t.Errorf("firm %d price = %v, want 25", i+1, results[i].Price)
		}
	}
}

func TestRoundResultLegacyProjection(t *testing.T) {
	firms := []FirmResult{
		{Firm: 1, Quantity: 30, Price: 40, Profit: 900},
		{Firm: 2, Quantity: 25, Price: 40, Profit: 750},
		{Firm: 3, Quantity: 20, Price: 40, Profit: 600},
	}
	r := NewRoundResult(4, firms, nil, nil)

	if math.Abs(r.TotalQuantity-75) > 1e-12 {
		t.Errorf("total quantity = %v, want 75", r.TotalQuantity)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	// Legacy mirror: first two firms projected into flat fields.
	if flat["quantity1"] != 30.0 || flat["quantity2"] != 25.0 {
		t.Errorf("legacy quantities = %v, %v", flat["quantity1"], flat["quantity2"])
	}
	if flat["profit1"] != 900.0 || flat["profit2"] != 750.0 {
		t.Errorf("legacy profits = %v, %v", flat["profit1"], flat["profit2"])
	}
	// Canonical per-firm array still present.
	if _, ok := flat["firms"].([]any); !ok {
		t.Error("canonical firms array missing from serialized form")
	}
}
