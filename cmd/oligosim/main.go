// oligosim runs oligopoly market simulations, either as an HTTP service or
// as one-shot games from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/MJE43/oligopoly-sim-go/internal/agents"
	"github.com/MJE43/oligopoly-sim-go/internal/api"
	"github.com/MJE43/oligopoly-sim-go/internal/config"
	"github.com/MJE43/oligopoly-sim-go/internal/game"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oligosim",
		Short: "Oligopoly market simulation engine",
		Long: `oligosim plays repeated oligopoly games between configurable agents:
fixed strategies, sandboxed JavaScript, or LLM players. It computes the
analytical benchmarks (Nash, cooperative, Cournot/Bertrand, limit pricing)
for every configuration and records each round's market outcome.`,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newRunCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := api.Version()
			fmt.Printf("oligosim version %s\n", info.EngineVersion)
			if info.GitCommit != "" {
				fmt.Printf("  commit: %s\n", info.GitCommit)
			}
			if info.BuildTime != "" {
				fmt.Printf("  built:  %s\n", info.BuildTime)
			}
		},
	}
}

// buildProvider constructs the decision provider selected by the process
// configuration. The returned func releases provider resources.
func buildProvider(ctx context.Context, cfg config.Config) (game.DecisionProvider, func(), error) {
	switch cfg.Agent {
	case "", "static":
		return &agents.Static{}, func() {}, nil

	case "script":
		if cfg.ScriptPath == "" {
			return nil, nil, fmt.Errorf("script agent selected but OLIGOSIM_SCRIPT_PATH is empty")
		}
		source, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read strategy script: %w", err)
		}
		s, err := agents.NewScript(string(source))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("gemini agent selected but GEMINI_API_KEY is empty")
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.GeminiRPS), 1)
		g, err := agents.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown agent %q (want static, script, or gemini)", cfg.Agent)
}
