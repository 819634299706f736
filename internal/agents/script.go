package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
)

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// Script runs a user-supplied JavaScript strategy in a sandboxed runtime.
// The script must define decide(state) returning a number or an object
// {value, rationale}; it may define communicate(state) returning a string
// for games with a communication phase.
//
// A goja runtime is single-threaded, so concurrent decision requests from
// the orchestrator are serialized on the mutex.
type Script struct {
	mu      sync.Mutex
	runtime *goja.Runtime
}

var _ game.DecisionProvider = (*Script)(nil)

// NewScript compiles and evaluates the strategy source once, registering
// its functions for the rest of the game.
func NewScript(source string) (*Script, error) {
	s := &Script{runtime: goja.New()}
	s.blockGlobals()

	if err := s.runWithTimeout(scriptInitTimeout, func() error {
		_, err := s.runtime.RunString(source)
		return err
	}); err != nil {
		return nil, fmt.Errorf("strategy script failed to load: %w", err)
	}

	if _, err := s.callable("decide"); err != nil {
		return nil, err
	}
	return s, nil
}

// blockGlobals removes runtime escape hatches. Math stays available.
func (s *Script) blockGlobals() {
	for _, name := range []string{"require", "fetch", "XMLHttpRequest", "eval", "Function"} {
		s.runtime.Set(name, goja.Undefined())
	}
}

func (s *Script) callable(name string) (goja.Callable, error) {
	fn := s.runtime.Get(name)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, fmt.Errorf("%s() is not defined", name)
	}
	c, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("%s is not a function", name)
	}
	return c, nil
}

func (s *Script) Decision(ctx context.Context, req game.DecisionRequest) (market.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result goja.Value
	err := s.runWithTimeout(scriptCallTimeout, func() error {
		fn, err := s.callable("decide")
		if err != nil {
			return err
		}
		state := s.runtime.ToValue(decisionState(req))
		result, err = fn(goja.Undefined(), state)
		return err
	})
	if err != nil {
		return market.Decision{}, fmt.Errorf("decide(): %w", err)
	}
	return parseDecision(result)
}

func (s *Script) CommunicationMessage(ctx context.Context, req game.MessageRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result goja.Value
	err := s.runWithTimeout(scriptCallTimeout, func() error {
		fn, err := s.callable("communicate")
		if err != nil {
			return err
		}
		state := s.runtime.ToValue(messageState(req))
		result, err = fn(goja.Undefined(), state)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("communicate(): %w", err)
	}
	return result.String(), nil
}

// parseDecision accepts either a bare number or an object with value and
// optional rationale fields.
func parseDecision(v goja.Value) (market.Decision, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return market.Decision{}, fmt.Errorf("decide() returned nothing")
	}
	if obj, ok := v.Export().(map[string]interface{}); ok {
		raw, ok := obj["value"]
		if !ok {
			return market.Decision{}, fmt.Errorf("decide() returned an object without a value field")
		}
		val, ok := toFloat(raw)
		if !ok {
			return market.Decision{}, fmt.Errorf("decide() value field is not numeric")
		}
		d := market.Decision{Value: val}
		if r, ok := obj["rationale"].(string); ok {
			d.Rationale = r
		}
		return d, nil
	}
	if val, ok := toFloat(v.Export()); ok {
		return market.Decision{Value: val}, nil
	}
	return market.Decision{}, fmt.Errorf("decide() must return a number or {value, rationale}")
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// decisionState flattens the request into plain maps and slices so the
// script sees ordinary JS objects.
func decisionState(req game.DecisionRequest) map[string]interface{} {
	return map[string]interface{}{
		"firm":        req.Firm,
		"round":       req.Round,
		"replication": req.Replication,
		"mode":        string(req.Config.Mode),
		"firms":       req.Config.Firms,
		"gamma":       req.Params.Gamma,
		"demand": map[string]interface{}{
			"form":      string(req.Params.Demand.Form),
			"intercept": req.Params.Demand.Intercept,
			"slope":     req.Params.Demand.Slope,
		},
		"myCost":     req.Params.LinearCosts[req.Firm-1],
		"history":    historyState(req.History),
		"transcript": transcriptState(req.Transcript),
	}
}

func transcriptState(transcript []market.TranscriptEntry) []map[string]interface{} {
	out := make([]map[string]interface{}, len(transcript))
	for i, e := range transcript {
		out[i] = map[string]interface{}{"firm": e.Firm, "text": e.Text}
	}
	return out
}

func messageState(req game.MessageRequest) map[string]interface{} {
	return map[string]interface{}{
		"firm":       req.Firm,
		"round":      req.Round,
		"firms":      req.Config.Firms,
		"history":    historyState(req.History),
		"transcript": transcriptState(req.Transcript),
	}
}

func historyState(history []market.RoundResult) []map[string]interface{} {
	out := make([]map[string]interface{}, len(history))
	for i, r := range history {
		firms := make([]map[string]interface{}, len(r.Firms))
		for j, f := range r.Firms {
			firms[j] = map[string]interface{}{
				"firm":     f.Firm,
				"quantity": f.Quantity,
				"price":    f.Price,
				"profit":   f.Profit,
			}
		}
		out[i] = map[string]interface{}{"round": r.Round, "firms": firms}
	}
	return out
}

func (s *Script) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		s.runtime.Interrupt("script execution timeout")
		defer s.runtime.ClearInterrupt()
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("script timed out: %w", err)
			}
			return fmt.Errorf("script timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("script timed out")
		}
	}
}
