// Package game drives repeated oligopoly simulations: configuration intake,
// the replication/round loop, communication phases, concurrent decision
// collection, and lifecycle state.
package game

import (
	"fmt"

	"github.com/MJE43/oligopoly-sim-go/internal/demand"
	"github.com/MJE43/oligopoly-sim-go/internal/equilibrium"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

// Scope controls how long one realized parameter set lives.
type Scope string

const (
	// ScopeGame realizes parameters once at configuration time.
	ScopeGame Scope = "game"
	// ScopeReplication re-realizes at the start of each replication.
	ScopeReplication Scope = "replication"
	// ScopeRound re-realizes fresh every round.
	ScopeRound Scope = "round"
)

// CommunicationConfig enables the pre-decision message phase.
type CommunicationConfig struct {
	Enabled          bool `json:"enabled" yaml:"enabled"`
	MessagesPerRound int  `json:"messagesPerRound" yaml:"messagesPerRound"`
}

// ParamSpecs declares randomized draws for structural parameters. Nil
// entries fall back to the configured literal values.
type ParamSpecs struct {
	Intercept      *params.Spec   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Slope          *params.Spec   `json:"slope,omitempty" yaml:"slope,omitempty"`
	Scale          *params.Spec   `json:"scale,omitempty" yaml:"scale,omitempty"`
	Elasticity     *params.Spec   `json:"elasticity,omitempty" yaml:"elasticity,omitempty"`
	Gamma          *params.Spec   `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	LinearCosts    []*params.Spec `json:"linearCosts,omitempty" yaml:"linearCosts,omitempty"`
	QuadraticCosts []*params.Spec `json:"quadraticCosts,omitempty" yaml:"quadraticCosts,omitempty"`
}

// Config is the immutable game configuration. It is the sole external
// mutation surface into the core; once a game starts it is never modified.
type Config struct {
	Mode           market.Mode `json:"mode" yaml:"mode"`
	Firms          int         `json:"firms" yaml:"firms"`
	Gamma          float64     `json:"gamma" yaml:"gamma"`
	Demand         demand.Spec `json:"demand" yaml:"demand"`
	LinearCosts    []float64   `json:"linearCosts" yaml:"linearCosts"`
	QuadraticCosts []float64   `json:"quadraticCosts,omitempty" yaml:"quadraticCosts,omitempty"`

	// Optional per-firm demand overrides (differentiated markets with
	// firm-specific demand curves).
	FirmIntercepts []float64 `json:"firmIntercepts,omitempty" yaml:"firmIntercepts,omitempty"`
	FirmSlopes     []float64 `json:"firmSlopes,omitempty" yaml:"firmSlopes,omitempty"`

	Rounds        int                 `json:"rounds" yaml:"rounds"`
	Replications  int                 `json:"replications" yaml:"replications"`
	Communication CommunicationConfig `json:"communication" yaml:"communication"`

	// Disclose controls per-firm information disclosure toward decision
	// providers; the core passes it through without interpreting it.
	Disclose []bool `json:"disclose,omitempty" yaml:"disclose,omitempty"`

	Bounds     market.Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	ParamSpecs ParamSpecs    `json:"paramSpecs,omitempty" yaml:"paramSpecs,omitempty"`
	Scope      Scope         `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// Validate rejects malformed configurations before any state transition.
func (c *Config) Validate() error {
	if c.Mode != market.ModeQuantity && c.Mode != market.ModePrice {
		return fmt.Errorf("competition mode must be %q or %q, got %q", market.ModeQuantity, market.ModePrice, c.Mode)
	}
	if c.Firms < 2 || c.Firms > 10 {
		return fmt.Errorf("number of firms must be between 2 and 10, got %d", c.Firms)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("differentiation coefficient must be in [0,1], got %v", c.Gamma)
	}
	if err := c.Demand.Validate(); err != nil {
		return err
	}
	if c.Mode == market.ModePrice && !c.Demand.IsLinear() {
		return fmt.Errorf("price-setting requires linear demand, got %q", c.Demand.Form)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("round count must be at least 1, got %d", c.Rounds)
	}
	if c.Replications < 1 {
		return fmt.Errorf("replication count must be at least 1, got %d", c.Replications)
	}
	if len(c.LinearCosts) != c.Firms {
		return fmt.Errorf("linear costs cover %d firms, want %d", len(c.LinearCosts), c.Firms)
	}
	if len(c.QuadraticCosts) != 0 && len(c.QuadraticCosts) != c.Firms {
		return fmt.Errorf("quadratic costs cover %d firms, want %d", len(c.QuadraticCosts), c.Firms)
	}
	if len(c.FirmIntercepts) != 0 && len(c.FirmIntercepts) != c.Firms {
		return fmt.Errorf("firm intercepts cover %d firms, want %d", len(c.FirmIntercepts), c.Firms)
	}
	if len(c.FirmSlopes) != 0 && len(c.FirmSlopes) != c.Firms {
		return fmt.Errorf("firm slopes cover %d firms, want %d", len(c.FirmSlopes), c.Firms)
	}
	if c.Communication.Enabled && c.Communication.MessagesPerRound < 1 {
		return fmt.Errorf("communication enabled with %d messages per round", c.Communication.MessagesPerRound)
	}
	switch c.Scope {
	case "", ScopeGame, ScopeReplication, ScopeRound:
	default:
		return fmt.Errorf("unknown variation scope %q", c.Scope)
	}
	return nil
}

// scope returns the effective variation scope, defaulting to game-wide.
func (c *Config) scope() Scope {
	if c.Scope == "" {
		return ScopeGame
	}
	return c.Scope
}

// inputs assembles the realization inputs from the configured literals and
// randomized specs.
func (c *Config) inputs() params.Inputs {
	quad := c.QuadraticCosts
	if len(quad) == 0 {
		quad = make([]float64, c.Firms)
	}
	return params.Inputs{
		Demand:             c.Demand,
		Gamma:              c.Gamma,
		LinearCosts:        c.LinearCosts,
		QuadraticCosts:     quad,
		FirmIntercepts:     c.FirmIntercepts,
		FirmSlopes:         c.FirmSlopes,
		InterceptSpec:      c.ParamSpecs.Intercept,
		SlopeSpec:          c.ParamSpecs.Slope,
		ScaleSpec:          c.ParamSpecs.Scale,
		ElasticitySpec:     c.ParamSpecs.Elasticity,
		GammaSpec:          c.ParamSpecs.Gamma,
		LinearCostSpecs:    c.ParamSpecs.LinearCosts,
		QuadraticCostSpecs: c.ParamSpecs.QuadraticCosts,
	}
}

// literalParams builds the deterministic parameter snapshot straight from
// the configured literals, bypassing any randomized specs.
func (c *Config) literalParams() params.Realized {
	in := c.inputs()
	return params.Realized{
		Demand:         in.Demand,
		Gamma:          in.Gamma,
		LinearCosts:    append([]float64(nil), in.LinearCosts...),
		QuadraticCosts: append([]float64(nil), in.QuadraticCosts...),
		FirmIntercepts: append([]float64(nil), in.FirmIntercepts...),
		FirmSlopes:     append([]float64(nil), in.FirmSlopes...),
	}
}

// Benchmarks holds the analytical equilibria computed once at configuration
// time. The legacy two-firm closed forms surface degenerate parameters as
// error strings; the N-firm and limit-pricing results carry their own
// not-calculable flags.
type Benchmarks struct {
	Nash             *equilibrium.Nash        `json:"nash,omitempty"`
	NashError        string                   `json:"nashError,omitempty"`
	Cooperative      *equilibrium.Cooperative `json:"cooperative,omitempty"`
	CooperativeError string                   `json:"cooperativeError,omitempty"`
	NFirm            equilibrium.NFirm        `json:"nfirm"`
	LimitPricing     equilibrium.LimitPricing `json:"limitPricing"`
}

// computeBenchmarks evaluates all four benchmarks against one parameter
// snapshot. Benchmarks are requested speculatively, so a closed form that
// does not exist for this configuration is recorded, not raised.
func computeBenchmarks(mode market.Mode, p params.Realized) Benchmarks {
	var b Benchmarks

	if nash, err := equilibrium.TwoFirmNash(p); err != nil {
		b.NashError = err.Error()
	} else {
		b.Nash = &nash
	}
	if coop, err := equilibrium.TwoFirmCooperative(p); err != nil {
		b.CooperativeError = err.Error()
	} else {
		b.Cooperative = &coop
	}

	if mode == market.ModePrice {
		b.NFirm = equilibrium.Bertrand(p)
	} else {
		b.NFirm = equilibrium.Cournot(p)
	}
	b.LimitPricing = equilibrium.AnalyzeLimitPricing(p)
	return b
}
