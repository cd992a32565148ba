package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAI implements Provider against any OpenAI-compatible chat
// completions endpoint. Pointing BaseURL at a local inference server
// works the same way as pointing it at the hosted API.
type OpenAI struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	mu         sync.Mutex
	model      string
	maxTokens  int
}

// OpenAIConfig holds configuration for an OpenAI-compatible backend.
type OpenAIConfig struct {
	BaseURL   string // defaults to the hosted OpenAI API
	APIKey    string
	Model     string
	MaxTokens int
}

// NewOpenAI creates a provider for an OpenAI-compatible API.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAI{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: pooledTransport(),
		},
		model:     model,
		maxTokens: maxTokens,
	}
}

func pooledTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) GetModel() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

func (o *OpenAI) SetModel(model string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.model = model
}

// Chat implements the Provider interface using the chat completions API.
func (o *OpenAI) Chat(ctx context.Context, systemPrompt string, messages []Message) (Message, error) {
	req := openAIRequest{
		Model:     o.GetModel(),
		MaxTokens: o.maxTokens,
		Messages:  convertToOpenAIMessages(systemPrompt, messages),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Message{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		o.baseURL+"/v1/chat/completions",
		bytes.NewReader(body))
	if err != nil {
		return Message{}, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return Message{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Message{}, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var openAIResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return Message{}, err
	}

	if len(openAIResp.Choices) == 0 {
		return Message{}, fmt.Errorf("empty response from API")
	}

	choice := openAIResp.Choices[0].Message
	return Message{Role: RoleAssistant, Content: choice.Content}, nil
}

func (o *OpenAI) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}

	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var modelsResp struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, err
	}

	var models []ModelInfo
	for _, m := range modelsResp.Data {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		models = append(models, ModelInfo{ID: m.ID, Name: name})
	}

	return models, nil
}

// OpenAI-compatible types

type openAIRequest struct {
	Model     string          `json:"model,omitempty"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func convertToOpenAIMessages(systemPrompt string, messages []Message) []openAIMessage {
	var result []openAIMessage
	if systemPrompt != "" {
		result = append(result, openAIMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range messages {
		result = append(result, openAIMessage{Role: msg.Role, Content: msg.Content})
	}
	return result
}
