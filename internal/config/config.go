// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process-level configuration. Game parameters come in over
// the API or a game file, never from the environment.
type Config struct {
	Addr   string `env:"OLIGOSIM_ADDR" envDefault:":8080"`
	DBPath string `env:"OLIGOSIM_DB_PATH" envDefault:"oligosim.db"`

	// Agent selects the default decision provider: static, script, or
	// gemini.
	Agent      string `env:"OLIGOSIM_AGENT" envDefault:"static"`
	ScriptPath string `env:"OLIGOSIM_SCRIPT_PATH"`

	GeminiAPIKey string  `env:"GEMINI_API_KEY"`
	GeminiModel  string  `env:"OLIGOSIM_GEMINI_MODEL"`
	GeminiRPS    float64 `env:"OLIGOSIM_GEMINI_RPS" envDefault:"1"`
}

// FromEnv loads configuration from environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
