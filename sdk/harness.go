package sdk

import (
	"context"
	"strings"
	"sync"

	"palaver/chat"
	"palaver/provider"
)

// TestHarness drives a chat session end-to-end against a MockProvider.
type TestHarness struct {
	provider     *MockProvider
	systemPrompt string

	mu      sync.Mutex
	session *chat.Session
	replies []string
	errors  []error
}

// NewHarness builds a harness with a fresh mock and session.
func NewHarness() *TestHarness {
	h := &TestHarness{provider: NewMockProvider()}
	h.session = chat.NewSession("harness", h.provider, "")
	return h
}

// WithSystemPrompt rebuilds the session with the given prompt.
func (h *TestHarness) WithSystemPrompt(prompt string) *TestHarness {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.systemPrompt = prompt
	h.session = chat.NewSession("harness", h.provider, prompt)
	return h
}

// QueueTextResponse schedules the next assistant reply.
func (h *TestHarness) QueueTextResponse(content string) *TestHarness {
	h.provider.QueueTextResponse(content)
	return h
}

// QueueError schedules the next call to fail.
func (h *TestHarness) QueueError(err error) *TestHarness {
	h.provider.QueueError(err)
	return h
}

// Turn runs one user turn through the real session code.
func (h *TestHarness) Turn(ctx context.Context, message string) error {
	reply, err := h.session.Turn(ctx, message)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.errors = append(h.errors, err)
		return err
	}
	h.replies = append(h.replies, reply)
	return nil
}

// Session exposes the underlying session for direct inspection.
func (h *TestHarness) Session() *chat.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Provider exposes the mock for call assertions.
func (h *TestHarness) Provider() *MockProvider {
	return h.provider
}

// Conversation returns the session history.
func (h *TestHarness) Conversation() []provider.Message {
	return h.Session().Messages()
}

// LastAssistantMessage returns the most recent reply, or "".
func (h *TestHarness) LastAssistantMessage() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.replies) == 0 {
		return ""
	}
	return h.replies[len(h.replies)-1]
}

// Errors returns every turn error seen so far.
func (h *TestHarness) Errors() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errors
}

// TranscriptContains reports whether any message in the history
// contains the given substring.
func (h *TestHarness) TranscriptContains(substr string) bool {
	for _, msg := range h.Conversation() {
		if strings.Contains(msg.Content, substr) {
			return true
		}
	}
	return false
}
