package provider

import (
	"context"
	"fmt"
	"strings"
)

// Provider is the interface for hosted AI backends.
// This abstraction lets palaver work with:
// - Anthropic API directly (needs ANTHROPIC_API_KEY)
// - Google Gemini (needs GEMINI_API_KEY)
// - Any OpenAI-compatible API (configurable base URL)
type Provider interface {
	// Chat sends the full conversation history to the LLM and gets a response.
	Chat(ctx context.Context, systemPrompt string, messages []Message) (Message, error)

	// Name returns the provider name for logging.
	Name() string

	// ListModels returns available models from the provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// SetModel changes the active model.
	SetModel(model string)

	// GetModel returns the current model.
	GetModel() string
}

// Message roles. Providers translate these to their own wire format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a conversation message.
// This is a simplified, provider-agnostic format.
type Message struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // Text content
}

// ModelInfo describes an available model.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StreamDelta represents a chunk of a simulated response stream.
type StreamDelta struct {
	Content string // Text content chunk
	Error   error  // Error if streaming was interrupted
	Done    bool   // True when the stream is complete
}

// Options selects and configures a backend.
type Options struct {
	Kind      string // "anthropic", "gemini" or "openai"
	Model     string // empty picks the backend default
	MaxTokens int
	APIKey    string // gemini/openai only; the anthropic SDK reads its own env var
	BaseURL   string // openai only
}

// New builds the provider named by opts.Kind.
func New(ctx context.Context, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "anthropic", "":
		return NewAnthropic(AnthropicConfig{
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
		}), nil
	case "gemini":
		return NewGemini(ctx, GeminiConfig{
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
		})
	case "openai":
		return NewOpenAI(OpenAIConfig{
			BaseURL:   opts.BaseURL,
			APIKey:    opts.APIKey,
			Model:     opts.Model,
			MaxTokens: opts.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", opts.Kind)
	}
}
