// Package sdk provides test doubles for exercising the chat loop
// without a live provider.
package sdk

import (
	"context"
	"sync"

	"palaver/provider"
)

// MockProvider replays queued responses and records every call.
type MockProvider struct {
	mu            sync.Mutex
	responses     []response
	responseIndex int
	model         string
	models        []provider.ModelInfo
	calls         []MockCall
}

type response struct {
	msg provider.Message
	err error
}

// MockCall captures one Chat invocation.
type MockCall struct {
	SystemPrompt string
	Messages     []provider.Message
}

// NewMockProvider creates an empty mock with a single fake model.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		model: "mock-model",
		models: []provider.ModelInfo{
			{ID: "mock-model", Name: "Mock Model"},
		},
	}
}

// QueueResponse schedules a full message reply.
func (m *MockProvider) QueueResponse(msg provider.Message) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response{msg: msg})
	return m
}

// QueueTextResponse schedules a plain assistant text reply.
func (m *MockProvider) QueueTextResponse(content string) *MockProvider {
	return m.QueueResponse(provider.Message{
		Role:    provider.RoleAssistant,
		Content: content,
	})
}

// QueueError schedules a failing call.
func (m *MockProvider) QueueError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, response{err: err})
	return m
}

func (m *MockProvider) Chat(ctx context.Context, systemPrompt string, messages []provider.Message) (provider.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := make([]provider.Message, len(messages))
	copy(history, messages)
	m.calls = append(m.calls, MockCall{
		SystemPrompt: systemPrompt,
		Messages:     history,
	})

	if m.responseIndex >= len(m.responses) {
		return provider.Message{
			Role:    provider.RoleAssistant,
			Content: "[MockProvider: no more queued responses]",
		}, nil
	}

	next := m.responses[m.responseIndex]
	m.responseIndex++
	if next.err != nil {
		return provider.Message{}, next.err
	}
	return next.msg, nil
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return m.models, nil
}

func (m *MockProvider) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

func (m *MockProvider) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// GetCalls returns every recorded Chat invocation.
func (m *MockProvider) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Reset clears queued responses and recorded calls.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.responseIndex = 0
	m.calls = nil
}
