package provider

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// Gemini implements Provider using Google's Gemini API.
type Gemini struct {
	client    *genai.Client
	mu        sync.Mutex
	model     string
	maxTokens int
}

// GeminiConfig holds configuration for the Gemini backend.
type GeminiConfig struct {
	APIKey    string
	Model     string // defaults to gemini-2.0-flash
	MaxTokens int
}

// NewGemini creates a Gemini-backed provider.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &Gemini{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) GetModel() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model
}

func (g *Gemini) SetModel(model string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.model = model
}

// Chat sends the conversation to the GenerateContent API.
// User messages map to the "user" role, assistant messages to "model".
func (g *Gemini) Chat(ctx context.Context, systemPrompt string, messages []Message) (Message, error) {
	var contents []*genai.Content
	for _, msg := range messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxTokens),
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.GetModel(), contents, config)
	if err != nil {
		return Message{}, fmt.Errorf("gemini generate failed: %w", err)
	}

	return Message{Role: RoleAssistant, Content: resp.Text()}, nil
}

func (g *Gemini) ListModels(ctx context.Context) ([]ModelInfo, error) {
	page, err := g.client.Models.List(ctx, &genai.ListModelsConfig{})
	if err != nil {
		return nil, err
	}

	var models []ModelInfo
	for _, m := range page.Items {
		name := m.DisplayName
		if name == "" {
			name = m.Name
		}
		models = append(models, ModelInfo{ID: m.Name, Name: name})
	}
	return models, nil
}
