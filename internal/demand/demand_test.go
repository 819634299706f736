package demand

import (
	"math"
	"testing"
)

func TestLinearPrice(t *testing.T) {
	s := Spec{Form: FormLinear, Intercept: 100, Slope: 1}

	if got := s.Price(40); got != 60 {
		t.Errorf("Price(40) = %v, want 60", got)
	}
	// Clamped at zero once quantity exceeds the choke point.
	if got := s.Price(150); got != 0 {
		t.Errorf("Price(150) = %v, want 0", got)
	}
}

func TestIsoelasticPrice(t *testing.T) {
	s := Spec{Form: FormIsoelastic, Scale: 50, Elasticity: 2}

	// P = 50 * 4^(-1/2) = 25
	if got := s.Price(4); math.Abs(got-25) > 1e-9 {
		t.Errorf("Price(4) = %v, want 25", got)
	}
	// Non-positive quantity maps to the large sentinel, not +Inf.
	if got := s.Price(0); got != 50*1000 {
		t.Errorf("Price(0) = %v, want sentinel %v", got, 50*1000)
	}
	if got := s.Price(-1); math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("Price(-1) = %v, want finite sentinel", got)
	}
}

func TestLogitPrice(t *testing.T) {
	s := Spec{Form: FormLogit, Intercept: 20, Slope: 3}

	want := 20 - 3*math.Log(5)
	if got := s.Price(5); math.Abs(got-want) > 1e-9 {
		t.Errorf("Price(5) = %v, want %v", got, want)
	}
	if got := s.Price(0); got != 200 {
		t.Errorf("Price(0) = %v, want sentinel 200", got)
	}
	// Large quantities clamp at zero rather than going negative.
	if got := s.Price(1e9); got != 0 {
		t.Errorf("Price(1e9) = %v, want 0", got)
	}
}

func TestExponentialPrice(t *testing.T) {
	s := Spec{Form: FormExponential, Scale: 80, Slope: 0.1}

	want := 80 * math.Exp(-1)
	if got := s.Price(10); math.Abs(got-want) > 1e-9 {
		t.Errorf("Price(10) = %v, want %v", got, want)
	}
}

func TestEffectiveQuantity(t *testing.T) {
	q := []float64{10, 20, 30}

	tests := []struct {
		firm  int
		gamma float64
		want  float64
	}{
		{0, 1.0, 60},   // homogeneous: total quantity
		{0, 0.0, 10},   // independent markets: own quantity only
		{1, 0.5, 40},   // 20 + 0.5*(10+30)
		{2, 0.25, 37.5},
	}
	for _, tt := range tests {
		if got := EffectiveQuantity(q, tt.firm, tt.gamma); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("EffectiveQuantity(firm=%d, gamma=%v) = %v, want %v", tt.firm, tt.gamma, got, tt.want)
		}
	}
}

func TestPriceForDifferentiated(t *testing.T) {
	s := Spec{Form: FormLinear, Intercept: 100, Slope: 1}
	q := []float64{30, 30}

	// gamma=1: both firms see the same price a - b*(q1+q2) = 40.
	if got := s.PriceFor(q, 0, 1.0); math.Abs(got-40) > 1e-12 {
		t.Errorf("PriceFor homogeneous = %v, want 40", got)
	}
	// gamma=0.5: each sees a - b*(30 + 0.5*30) = 55.
	if got := s.PriceFor(q, 1, 0.5); math.Abs(got-55) > 1e-12 {
		t.Errorf("PriceFor differentiated = %v, want 55", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{"valid linear", Spec{Form: FormLinear, Intercept: 100, Slope: 1}, false},
		{"zero slope", Spec{Form: FormLinear, Intercept: 100, Slope: 0}, true},
		{"negative intercept", Spec{Form: FormLinear, Intercept: -5, Slope: 1}, true},
		{"valid isoelastic", Spec{Form: FormIsoelastic, Scale: 50, Elasticity: 2}, false},
		{"zero elasticity", Spec{Form: FormIsoelastic, Scale: 50}, true},
		{"valid logit", Spec{Form: FormLogit, Intercept: 20, Slope: 3}, false},
		{"valid exponential", Spec{Form: FormExponential, Scale: 80, Slope: 0.1}, false},
		{"unknown form", Spec{Form: "quadratic"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
