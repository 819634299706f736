package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/MJE43/oligopoly-sim-go/internal/demand"
	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
	"github.com/MJE43/oligopoly-sim-go/internal/params"
)

func testRequest() game.DecisionRequest {
	return game.DecisionRequest{
		Config: &game.Config{
			Mode:        market.ModeQuantity,
			Firms:       2,
			LinearCosts: []float64{10, 12},
			Rounds:      5,
		},
		Firm:        1,
		Replication: 1,
		Round:       2,
		Params: params.Realized{
			Demand:      demand.Spec{Form: demand.FormLinear, Intercept: 100, Slope: 1},
			Gamma:       1,
			LinearCosts: []float64{10, 12},
		},
		History: []market.RoundResult{
			{Round: 1, Firms: []market.FirmResult{
				{Firm: 1, Quantity: 30, Price: 40, Profit: 900},
				{Firm: 2, Quantity: 30, Price: 40, Profit: 840},
			}},
		},
	}
}

func TestScriptReturnsNumber(t *testing.T) {
	s, err := NewScript(`function decide(state) { return 25; }`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	d, err := s.Decision(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Decision: %v", err)
	}
	if d.Value != 25 {
		t.Fatalf("value = %v, want 25", d.Value)
	}
}

func TestScriptReturnsObjectWithRationale(t *testing.T) {
	s, err := NewScript(`function decide(state) {
		return { value: 30, rationale: "match last round" };
	}`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	d, err := s.Decision(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Decision: %v", err)
	}
	if d.Value != 30 || d.Rationale != "match last round" {
		t.Fatalf("decision = %+v", d)
	}
}

func TestScriptSeesGameState(t *testing.T) {
	s, err := NewScript(`function decide(state) {
		// best response to the rival's last quantity under P = a - Q
		var rival = state.history[0].firms[1].quantity;
		return (state.demand.intercept - state.myCost - rival) / 2;
	}`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	d, err := s.Decision(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Decision: %v", err)
	}
	if d.Value != 30 {
		t.Fatalf("best response = %v, want (100-10-30)/2 = 30", d.Value)
	}
}

func TestScriptCommunicate(t *testing.T) {
	s, err := NewScript(`
		function decide(state) { return 30; }
		function communicate(state) {
			return "firm " + state.firm + " proposes restraint";
		}`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	msg, err := s.CommunicationMessage(context.Background(), game.MessageRequest{
		Config: &game.Config{Firms: 2},
		Firm:   1,
		Round:  1,
	})
	if err != nil {
		t.Fatalf("CommunicationMessage: %v", err)
	}
	if msg != "firm 1 proposes restraint" {
		t.Fatalf("message = %q", msg)
	}
}

func TestScriptWithoutCommunicateFails(t *testing.T) {
	s, err := NewScript(`function decide(state) { return 30; }`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	if _, err := s.CommunicationMessage(context.Background(), game.MessageRequest{
		Config: &game.Config{Firms: 2},
		Firm:   1,
	}); err == nil {
		t.Fatal("expected error when communicate() is missing")
	}
}

func TestScriptMissingDecideRejected(t *testing.T) {
	if _, err := NewScript(`var x = 1;`); err == nil {
		t.Fatal("script without decide() should be rejected at load")
	}
}

func TestScriptSyntaxErrorRejected(t *testing.T) {
	if _, err := NewScript(`function decide( {`); err == nil {
		t.Fatal("broken script should be rejected at load")
	}
}

func TestScriptRunawayLoopInterrupted(t *testing.T) {
	s, err := NewScript(`function decide(state) { while (true) {} }`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	if _, err := s.Decision(context.Background(), testRequest()); err == nil {
		t.Fatal("runaway script should time out")
	}
}

func TestScriptSandboxBlocksEscapes(t *testing.T) {
	s, err := NewScript(`function decide(state) {
		if (typeof require !== "undefined") { return 1; }
		if (typeof fetch !== "undefined") { return 2; }
		if (typeof eval === "function") { return 3; }
		return 0;
	}`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	d, err := s.Decision(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Decision: %v", err)
	}
	if d.Value != 0 {
		t.Fatalf("sandbox leak detected, marker = %v", d.Value)
	}
}

func TestScriptBadReturnValue(t *testing.T) {
	s, err := NewScript(`function decide(state) { return "thirty"; }`)
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	if _, err := s.Decision(context.Background(), testRequest()); err == nil {
		t.Fatal("non-numeric return should be an error")
	}
}

func TestStaticProvider(t *testing.T) {
	s := &Static{Values: []float64{30, 25}, Message: "no comment"}

	req := testRequest()
	d, err := s.Decision(context.Background(), req)
	if err != nil {
		t.Fatalf("Decision: %v", err)
	}
	if d.Value != 30 {
		t.Fatalf("firm 1 value = %v, want 30", d.Value)
	}

	req.Firm = 2
	d, _ = s.Decision(context.Background(), req)
	if d.Value != 25 {
		t.Fatalf("firm 2 value = %v, want 25", d.Value)
	}

	// Beyond the configured slice, the scalar fallback applies.
	req.Firm = 3
	d, _ = s.Decision(context.Background(), req)
	if d.Value != 0 {
		t.Fatalf("fallback value = %v, want 0", d.Value)
	}

	msg, err := s.CommunicationMessage(context.Background(), game.MessageRequest{Firm: 1})
	if err != nil || msg != "no comment" {
		t.Fatalf("message = %q, err = %v", msg, err)
	}
}

func TestStripFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```yaml\nvalue: 30\n```", "value: 30"},
		{"```\nvalue: 30\n```", "value: 30"},
		{"value: 30", "value: 30"},
		{"  ```yaml\nvalue: 30\n```  ", "value: 30"},
	}
	for _, c := range cases {
		if got := stripFence(c.in); got != c.want {
			t.Errorf("stripFence(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDecisionPromptRendering(t *testing.T) {
	req := testRequest()
	req.Config.Disclose = []bool{true, true}
	maxQ := 50.0
	req.Config.Bounds = market.Bounds{MaxQuantity: &maxQ}
	req.Transcript = []market.TranscriptEntry{{Firm: 2, Text: "let us both cut output"}}

	prompt, err := renderTemplate(decisionTmpl, decisionPromptData(req))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"firm 1",
		"quantity",
		"P = 100 - 1*Q",
		"firm 2: 12",
		"at most 50",
		"Round 1: firm 1 q=30.00",
		"let us both cut output",
		"```yaml",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, prompt)
		}
	}
}

func TestDisclosureHidesUndisclosedCosts(t *testing.T) {
	req := testRequest()
	req.Config.Disclose = []bool{true, false}

	prompt, err := renderTemplate(decisionTmpl, decisionPromptData(req))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(prompt, "firm 2: 12") {
		t.Fatal("undisclosed rival cost leaked into the prompt")
	}
}
