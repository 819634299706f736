package agents

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/market"
)

//go:embed prompts/decision.txt
var decisionPrompt string

//go:embed prompts/message.txt
var messagePrompt string

const defaultGeminiModel = "gemini-2.5-flash"

var (
	decisionTmpl = template.Must(template.New("decision").Parse(decisionPrompt))
	messageTmpl  = template.Must(template.New("message").Parse(messagePrompt))
)

// Gemini plays firms through the Gemini API. One provider serves every firm
// in a game; each request is self-contained.
//
// Retries and rate limiting live here, not in the game loop: the core sees
// a single call that either resolves or fails.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	limiter *rate.Limiter
}

var _ game.DecisionProvider = (*Gemini)(nil)

// NewGemini dials the API. An empty modelName selects the default model; a
// nil limiter disables client-side rate limiting.
func NewGemini(ctx context.Context, apiKey, modelName string, limiter *rate.Limiter) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(modelName),
		limiter: limiter,
	}, nil
}

func (g *Gemini) Close() {
	g.client.Close()
}

func (g *Gemini) Decision(ctx context.Context, req game.DecisionRequest) (market.Decision, error) {
	prompt, err := renderTemplate(decisionTmpl, decisionPromptData(req))
	if err != nil {
		return market.Decision{}, err
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return market.Decision{}, err
	}

	var reply struct {
		Value     float64 `yaml:"value"`
		Rationale string  `yaml:"rationale"`
	}
	if err := yaml.Unmarshal([]byte(stripFence(text)), &reply); err != nil {
		return market.Decision{}, fmt.Errorf("unparseable model reply: %w\nreply was: %s", err, text)
	}

	return market.Decision{
		Value:       reply.Value,
		Rationale:   reply.Rationale,
		PromptAudit: prompt,
	}, nil
}

func (g *Gemini) CommunicationMessage(ctx context.Context, req game.MessageRequest) (string, error) {
	prompt, err := renderTemplate(messageTmpl, messagePromptData(req))
	if err != nil {
		return "", err
	}
	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// generate performs one rate-limited, retried model call and extracts the
// text of the first candidate.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var out string
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return retry.RetryableError(err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return retry.RetryableError(fmt.Errorf("empty model response"))
		}
		text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
		}
		out = string(text)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	return out, nil
}

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt template: %w", err)
	}
	return buf.String(), nil
}

// stripFence removes an optional ```yaml code fence around the reply.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```yaml")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

type promptData struct {
	Firm       int
	Firms      int
	Round      int
	Rounds     int
	Control    string
	Demand     string
	Gamma      float64
	MyCost     float64
	RivalCosts string
	Bounds     string
	History    string
	Transcript string
}

func decisionPromptData(req game.DecisionRequest) promptData {
	cfg := req.Config
	control := "quantity"
	if cfg.Mode == market.ModePrice {
		control = "price"
	}
	return promptData{
		Firm:       req.Firm,
		Firms:      cfg.Firms,
		Round:      req.Round,
		Rounds:     cfg.Rounds,
		Control:    control,
		Demand:     describeDemand(req),
		Gamma:      req.Params.Gamma,
		MyCost:     req.Params.LinearCosts[req.Firm-1],
		RivalCosts: disclosedCosts(req),
		Bounds:     describeBounds(cfg.Mode, cfg.Bounds),
		History:    historyText(req.History),
		Transcript: transcriptText(req.Transcript),
	}
}

func messagePromptData(req game.MessageRequest) promptData {
	return promptData{
		Firm:       req.Firm,
		Firms:      req.Config.Firms,
		Round:      req.Round,
		History:    historyText(req.History),
		Transcript: transcriptText(req.Transcript),
	}
}

func describeDemand(req game.DecisionRequest) string {
	d := req.Params.Demand
	switch {
	case d.IsLinear():
		return fmt.Sprintf("linear, P = %.4g - %.4g*Q for your effective quantity Q", d.Intercept, d.Slope)
	default:
		return fmt.Sprintf("%s with intercept %.4g", d.Form, d.Intercept)
	}
}

// disclosedCosts renders rival costs whose disclosure flag is set.
func disclosedCosts(req game.DecisionRequest) string {
	cfg := req.Config
	if len(cfg.Disclose) != cfg.Firms {
		return ""
	}
	var parts []string
	for j := 0; j < cfg.Firms; j++ {
		if j == req.Firm-1 || !cfg.Disclose[j] {
			continue
		}
		parts = append(parts, fmt.Sprintf("firm %d: %.4g", j+1, req.Params.LinearCosts[j]))
	}
	return strings.Join(parts, ", ")
}

func describeBounds(mode market.Mode, b market.Bounds) string {
	min, max := b.MinQuantity, b.MaxQuantity
	if mode == market.ModePrice {
		min, max = b.MinPrice, b.MaxPrice
	}
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("[%.4g, %.4g]", *min, *max)
	case min != nil:
		return fmt.Sprintf("at least %.4g", *min)
	case max != nil:
		return fmt.Sprintf("at most %.4g", *max)
	}
	return ""
}

func historyText(history []market.RoundResult) string {
	var b strings.Builder
	for _, r := range history {
		fmt.Fprintf(&b, "Round %d:", r.Round)
		for _, f := range r.Firms {
			fmt.Fprintf(&b, " firm %d q=%.2f p=%.2f profit=%.2f;", f.Firm, f.Quantity, f.Price, f.Profit)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func transcriptText(transcript []market.TranscriptEntry) string {
	var b strings.Builder
	for _, e := range transcript {
		fmt.Fprintf(&b, "Firm %d: %s\n", e.Firm, e.Text)
	}
	return strings.TrimSpace(b.String())
}
