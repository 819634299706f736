// Package agents provides the built-in decision providers: a fixed-value
// baseline, a sandboxed JavaScript strategy, and an LLM-backed player.
package agents

import (
	"context"
	"fmt"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
)

// Static plays the same value every round. Useful as a benchmark opponent
// and for deterministic runs.
type Static struct {
	// Values holds one decision value per firm. When shorter than the
	// firm count, Value is used for the rest.
	Values []float64
	Value  float64

	// Message is what the agent says during communication phases.
	Message string
}

var _ game.DecisionProvider = (*Static)(nil)

func (s *Static) Decision(_ context.Context, req game.DecisionRequest) (market.Decision, error) {
	v := s.Value
	if req.Firm-1 < len(s.Values) {
		v = s.Values[req.Firm-1]
	}
	return market.Decision{Value: v, Rationale: "static strategy"}, nil
}

func (s *Static) CommunicationMessage(_ context.Context, req game.MessageRequest) (string, error) {
	if s.Message != "" {
		return s.Message, nil
	}
	return fmt.Sprintf("firm %d has nothing to add", req.Firm), nil
}
