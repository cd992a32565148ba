// Package config loads palaver settings from environment variables with
// optional flag overrides. A .env file in the working directory is
// picked up automatically for local development.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the full application configuration.
type Config struct {
	// Port follows the serverless platform convention of a bare PORT var.
	Port int `env:"PORT" envDefault:"8080"`

	Provider  string `env:"PALAVER_PROVIDER" envDefault:"anthropic"`
	Model     string `env:"PALAVER_MODEL"`
	MaxTokens int    `env:"PALAVER_MAX_TOKENS" envDefault:"1024"`

	SystemPrompt string `env:"PALAVER_SYSTEM_PROMPT" envDefault:"You are a concise, helpful assistant."`

	// StreamDelay is the fixed pause between words of the simulated stream.
	StreamDelay time.Duration `env:"PALAVER_STREAM_DELAY" envDefault:"40ms"`

	// ModelCacheTTL bounds how long /api/models may serve a stale listing.
	ModelCacheTTL time.Duration `env:"PALAVER_MODEL_CACHE_TTL" envDefault:"5m"`

	// Gemini and OpenAI-compatible backends take explicit credentials;
	// the Anthropic SDK reads ANTHROPIC_API_KEY on its own.
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	Verbose bool `env:"PALAVER_VERBOSE"`
}

// Parse loads env (and .env) settings, then lets flags override them.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "LLM backend: anthropic, gemini or openai")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model to use (backend default if empty)")
	fs.DurationVar(&cfg.StreamDelay, "stream-delay", cfg.StreamDelay, "Delay between words of the simulated stream")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "anthropic", "gemini", "openai":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.StreamDelay < 0 {
		return fmt.Errorf("stream delay must not be negative")
	}
	return nil
}

// APIKey returns the credential matching the selected provider.
func (c Config) APIKey() string {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "gemini":
		return c.GeminiAPIKey
	case "openai":
		return c.OpenAIAPIKey
	default:
		return ""
	}
}
