package params

import (
	"math"
	"testing"

	"github.com/MJE43/oligopoly-sim-go/internal/demand"
)

func fixedInputs() Inputs {
	return Inputs{
		Demand:         demand.Spec{Form: demand.FormLinear, Intercept: 100, Slope: 1},
		Gamma:          0.5,
		LinearCosts:    []float64{10, 15},
		QuadraticCosts: []float64{0, 0.5},
	}
}

func TestDrawAllFixedIsIdentity(t *testing.T) {
	r := NewRealizerWithSeed(1)
	in := fixedInputs()

	// With no random specs, every call returns the configured literals.
	for i := 0; i < 3; i++ {
		got := r.DrawAll(in)
		if got.Demand.Intercept != 100 || got.Demand.Slope != 1 {
			t.Errorf("call %d: demand = %+v, want literals", i, got.Demand)
		}
		if got.Gamma != 0.5 {
			t.Errorf("call %d: gamma = %v, want 0.5", i, got.Gamma)
		}
		if got.LinearCosts[0] != 10 || got.LinearCosts[1] != 15 {
			t.Errorf("call %d: linear costs = %v", i, got.LinearCosts)
		}
		if got.QuadraticCosts[1] != 0.5 {
			t.Errorf("call %d: quadratic costs = %v", i, got.QuadraticCosts)
		}
	}
}

func TestDrawAllAlwaysComplete(t *testing.T) {
	r := NewRealizerWithSeed(42)
	in := fixedInputs()
	in.LinearCostSpecs = []*Spec{{Kind: KindUniform, Min: 5, Max: 20}, nil}
	in.GammaSpec = &Spec{Kind: KindNormal, Mean: 0.8, StdDev: 0.3}

	got := r.DrawAll(in)
	if len(got.LinearCosts) != 2 || len(got.QuadraticCosts) != 2 {
		t.Fatalf("realized set incomplete: %+v", got)
	}
	// Gamma is always clamped into [0,1] regardless of the draw.
	if got.Gamma < 0 || got.Gamma > 1 {
		t.Errorf("gamma = %v, want within [0,1]", got.Gamma)
	}
	// The nil spec falls back to the configured literal.
	if got.LinearCosts[1] != 15 {
		t.Errorf("firm 2 linear cost = %v, want literal 15", got.LinearCosts[1])
	}
}

func TestDrawUniformWithinBounds(t *testing.T) {
	r := NewRealizerWithSeed(7)
	s := Spec{Kind: KindUniform, Min: 3, Max: 9}

	for i := 0; i < 1000; i++ {
		v := r.Draw(s)
		if v < 3 || v > 9 {
			t.Fatalf("uniform draw %v outside [3,9]", v)
		}
	}
}

func TestDrawNormalMoments(t *testing.T) {
	r := NewRealizerWithSeed(11)
	s := Spec{Kind: KindNormal, Mean: 50, StdDev: 5}

	n := 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += r.Draw(s)
	}
	mean := sum / float64(n)
	if math.Abs(mean-50) > 0.5 {
		t.Errorf("normal sample mean = %v, want ~50", mean)
	}
}

func TestDrawLognormalPositiveAndMomentMatched(t *testing.T) {
	r := NewRealizerWithSeed(13)
	s := Spec{Kind: KindLognormal, Mean: 10, StdDev: 2}

	n := 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := r.Draw(s)
		if v <= 0 {
			t.Fatalf("lognormal draw %v is not positive", v)
		}
		sum += v
	}
	mean := sum / float64(n)
	// Moment matching should put the sample mean near the requested mean.
	if math.Abs(mean-10) > 0.3 {
		t.Errorf("lognormal sample mean = %v, want ~10", mean)
	}
}

func TestDrawFixed(t *testing.T) {
	r := NewRealizerWithSeed(3)
	if got := r.Draw(Spec{Kind: KindFixed, Value: 42}); got != 42 {
		t.Errorf("fixed draw = %v, want 42", got)
	}
}

func TestHasRandom(t *testing.T) {
	in := fixedInputs()
	if HasRandom(in) {
		t.Error("all-literal inputs reported as random")
	}

	in.QuadraticCostSpecs = []*Spec{nil, {Kind: KindFixed, Value: 1}}
	if HasRandom(in) {
		t.Error("fixed specs reported as random")
	}

	in.SlopeSpec = &Spec{Kind: KindUniform, Min: 0.5, Max: 2}
	if !HasRandom(in) {
		t.Error("uniform slope spec not reported as random")
	}
}

func TestRealizerDeterministicWithSeed(t *testing.T) {
	s := Spec{Kind: KindUniform, Min: 0, Max: 1}
	a := NewRealizerWithSeed(99)
	b := NewRealizerWithSeed(99)
	for i := 0; i < 10; i++ {
		if a.Draw(s) != b.Draw(s) {
			t.Fatal("same seed produced diverging sequences")
		}
	}
}
