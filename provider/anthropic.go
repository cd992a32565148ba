package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// Anthropic implements Provider using the official Anthropic SDK.
// The SDK picks up ANTHROPIC_API_KEY from the environment.
type Anthropic struct {
	client    anthropic.Client
	mu        sync.Mutex
	model     string
	maxTokens int
}

// AnthropicConfig holds configuration for the Anthropic backend.
type AnthropicConfig struct {
	Model     string // defaults to the latest Sonnet alias
	MaxTokens int
}

// NewAnthropic creates an Anthropic-backed provider.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Anthropic{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (a *Anthropic) Name() string {
	return "anthropic"
}

func (a *Anthropic) GetModel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

func (a *Anthropic) SetModel(model string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = model
}

// Chat sends the conversation to the Messages API and returns the
// concatenated text blocks of the reply.
func (a *Anthropic) Chat(ctx context.Context, systemPrompt string, messages []Message) (Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.GetModel()),
		MaxTokens: int64(a.maxTokens),
		Messages:  convertToAnthropicMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Message{}, err
	}

	var text strings.Builder
	for _, content := range message.Content {
		switch content.Type {
		case "text":
			text.WriteString(content.Text)
		}
	}

	return Message{Role: RoleAssistant, Content: text.String()}, nil
}

func (a *Anthropic) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := a.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil, err
	}

	var models []ModelInfo
	for _, m := range page.Data {
		models = append(models, ModelInfo{ID: m.ID, Name: m.DisplayName})
	}
	return models, nil
}

func convertToAnthropicMessages(messages []Message) []anthropic.MessageParam {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}
