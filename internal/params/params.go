// Package params draws concrete structural parameters (demand coefficients,
// firm costs, the differentiation coefficient) from declared probability
// specifications.
package params

import (
	crand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand"

	"github.com/MJE43/oligopoly-sim-go/internal/demand"
)

// Kind identifies how a scalar parameter is drawn.
type Kind string

const (
	KindFixed     Kind = "fixed"
	KindUniform   Kind = "uniform"
	KindNormal    Kind = "normal"
	KindLognormal Kind = "lognormal"
)

// Spec is a tagged probability specification for one scalar parameter.
type Spec struct {
	Kind   Kind    `json:"kind" yaml:"kind"`
	Value  float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Min    float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev float64 `json:"stdDev,omitempty" yaml:"stdDev,omitempty"`
}

// IsRandom reports whether the spec involves an actual draw.
func (s *Spec) IsRandom() bool {
	return s != nil && s.Kind != "" && s.Kind != KindFixed
}

// Inputs is the full set of structural parameters a game needs realized.
// Literal fields are the deterministic fallbacks; the optional *Spec fields
// override them with randomized draws.
type Inputs struct {
	Demand         demand.Spec
	Gamma          float64
	LinearCosts    []float64
	QuadraticCosts []float64

	// Optional per-firm demand overrides, passed through to the realized set.
	FirmIntercepts []float64
	FirmSlopes     []float64

	InterceptSpec      *Spec
	SlopeSpec          *Spec
	ScaleSpec          *Spec
	ElasticitySpec     *Spec
	GammaSpec          *Spec
	LinearCostSpecs    []*Spec
	QuadraticCostSpecs []*Spec
}

// Realized is the concrete parameter set actually used for a round or
// replication. Immutable once drawn.
type Realized struct {
	Demand         demand.Spec `json:"demand"`
	Gamma          float64     `json:"gamma"`
	LinearCosts    []float64   `json:"linearCosts"`
	QuadraticCosts []float64   `json:"quadraticCosts"`
	FirmIntercepts []float64   `json:"firmIntercepts,omitempty"`
	FirmSlopes     []float64   `json:"firmSlopes,omitempty"`
}

// Realizer draws parameter sets from a single random source.
type Realizer struct {
	rng *rand.Rand
}

// NewRealizer creates a realizer seeded from crypto/rand.
func NewRealizer() *Realizer {
	var b [8]byte
	seed := int64(1)
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return NewRealizerWithSeed(seed)
}

// NewRealizerWithSeed creates a deterministic realizer for reproducible runs.
func NewRealizerWithSeed(seed int64) *Realizer {
	return &Realizer{rng: rand.New(rand.NewSource(seed))}
}

// Draw realizes one scalar from its specification.
func (r *Realizer) Draw(s Spec) float64 {
	switch s.Kind {
	case KindUniform:
		return s.Min + r.rng.Float64()*(s.Max-s.Min)
	case KindNormal:
		return s.Mean + s.StdDev*r.boxMuller()
	case KindLognormal:
		// Moment-match the desired mean/stdDev to the underlying normal.
		if s.Mean <= 0 {
			return 0
		}
		variance := s.StdDev * s.StdDev
		sigma2 := math.Log(1 + variance/(s.Mean*s.Mean))
		mu := math.Log(s.Mean) - sigma2/2
		return math.Exp(mu + math.Sqrt(sigma2)*r.boxMuller())
	default:
		return s.Value
	}
}

// boxMuller produces one standard normal variate.
func (r *Realizer) boxMuller() float64 {
	u1 := r.rng.Float64()
	for u1 == 0 {
		u1 = r.rng.Float64()
	}
	u2 := r.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// drawOr returns a drawn value when a spec is given, the literal otherwise.
func (r *Realizer) drawOr(s *Spec, literal float64) float64 {
	if s == nil {
		return literal
	}
	return r.Draw(*s)
}

// DrawAll realizes the complete parameter set in one call. The set is always
// complete for every configured firm; a partially-realized set would make a
// round internally inconsistent, so there is no incremental variant.
func (r *Realizer) DrawAll(in Inputs) Realized {
	d := in.Demand
	switch d.Form {
	case demand.FormLinear, demand.FormLogit:
		d.Intercept = r.drawOr(in.InterceptSpec, d.Intercept)
		d.Slope = r.drawOr(in.SlopeSpec, d.Slope)
	case demand.FormIsoelastic:
		d.Scale = r.drawOr(in.ScaleSpec, d.Scale)
		d.Elasticity = r.drawOr(in.ElasticitySpec, d.Elasticity)
	case demand.FormExponential:
		d.Scale = r.drawOr(in.ScaleSpec, d.Scale)
		d.Slope = r.drawOr(in.SlopeSpec, d.Slope)
	}

	gamma := r.drawOr(in.GammaSpec, in.Gamma)
	gamma = math.Max(0, math.Min(1, gamma))

	n := len(in.LinearCosts)
	out := Realized{
		Demand:         d,
		Gamma:          gamma,
		LinearCosts:    make([]float64, n),
		QuadraticCosts: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		var ls, qs *Spec
		if i < len(in.LinearCostSpecs) {
			ls = in.LinearCostSpecs[i]
		}
		if i < len(in.QuadraticCostSpecs) {
			qs = in.QuadraticCostSpecs[i]
		}
		out.LinearCosts[i] = r.drawOr(ls, in.LinearCosts[i])
		quad := in.QuadraticCosts[i]
		out.QuadraticCosts[i] = r.drawOr(qs, quad)
	}

	if len(in.FirmIntercepts) == n && n > 0 {
		out.FirmIntercepts = append([]float64(nil), in.FirmIntercepts...)
	}
	if len(in.FirmSlopes) == n && n > 0 {
		out.FirmSlopes = append([]float64(nil), in.FirmSlopes...)
	}
	return out
}

// HasRandom reports whether any spec in the inputs is non-fixed. Callers use
// it to skip needless draws for fully deterministic configurations.
func HasRandom(in Inputs) bool {
	for _, s := range []*Spec{in.InterceptSpec, in.SlopeSpec, in.ScaleSpec, in.ElasticitySpec, in.GammaSpec} {
		if s.IsRandom() {
			return true
		}
	}
	for _, s := range in.LinearCostSpecs {
		if s.IsRandom() {
			return true
		}
	}
	for _, s := range in.QuadraticCostSpecs {
		if s.IsRandom() {
			return true
		}
	}
	return false
}
