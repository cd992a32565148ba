package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palaver/provider"
)

// scriptedProvider replays canned replies and records what it was sent.
type scriptedProvider struct {
	replies []string
	err     error
	calls   [][]provider.Message
	prompts []string
	model   string
}

func (s *scriptedProvider) Chat(ctx context.Context, systemPrompt string, messages []provider.Message) (provider.Message, error) {
	history := make([]provider.Message, len(messages))
	copy(history, messages)
	s.calls = append(s.calls, history)
	s.prompts = append(s.prompts, systemPrompt)

	if s.err != nil {
		return provider.Message{}, s.err
	}

	reply := "[no more replies]"
	if len(s.replies) > 0 {
		reply = s.replies[0]
		s.replies = s.replies[1:]
	}
	return provider.Message{Role: provider.RoleAssistant, Content: reply}, nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return []provider.ModelInfo{{ID: "scripted-model", Name: "Scripted"}}, nil
}

func (s *scriptedProvider) SetModel(model string) { s.model = model }
func (s *scriptedProvider) GetModel() string      { return s.model }

func TestSessionTurnAppendsBothSides(t *testing.T) {
	p := &scriptedProvider{replies: []string{"Hello!"}}
	session := NewSession("s1", p, "Be helpful.")

	reply, err := session.Turn(context.Background(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply)

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, provider.RoleUser, messages[0].Role)
	assert.Equal(t, "Hi", messages[0].Content)
	assert.Equal(t, provider.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Hello!", messages[1].Content)
}

func TestSessionTurnSendsFullHistory(t *testing.T) {
	p := &scriptedProvider{replies: []string{"one", "two"}}
	session := NewSession("s1", p, "prompt")

	_, err := session.Turn(context.Background(), "first")
	require.NoError(t, err)
	_, err = session.Turn(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, p.calls, 2)
	// The second call carries the entire conversation so far.
	require.Len(t, p.calls[1], 3)
	assert.Equal(t, "first", p.calls[1][0].Content)
	assert.Equal(t, "one", p.calls[1][1].Content)
	assert.Equal(t, "second", p.calls[1][2].Content)
	assert.Equal(t, "prompt", p.prompts[1])
}

func TestSessionTurnRejectsEmptyInput(t *testing.T) {
	p := &scriptedProvider{}
	session := NewSession("s1", p, "")

	_, err := session.Turn(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, p.calls, "provider must not be called for blank input")
	assert.Zero(t, session.Len())
}

func TestSessionTurnTrimsInput(t *testing.T) {
	p := &scriptedProvider{replies: []string{"ok"}}
	session := NewSession("s1", p, "")

	_, err := session.Turn(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", session.Messages()[0].Content)
}

func TestSessionTurnRollsBackOnProviderError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("boom")}
	session := NewSession("s1", p, "")

	_, err := session.Turn(context.Background(), "hi")
	require.Error(t, err)
	assert.Zero(t, session.Len(), "failed turn must leave no trace in history")

	// A retry after recovery starts from a clean slate.
	p.err = nil
	p.replies = []string{"recovered"}
	reply, err := session.Turn(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, 2, session.Len())
}

func TestSessionReset(t *testing.T) {
	p := &scriptedProvider{replies: []string{"a"}}
	session := NewSession("s1", p, "")

	_, err := session.Turn(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, 2, session.Len())

	session.Reset()
	assert.Zero(t, session.Len())
}

func TestSessionMessagesReturnsCopy(t *testing.T) {
	p := &scriptedProvider{replies: []string{"a"}}
	session := NewSession("s1", p, "")

	_, err := session.Turn(context.Background(), "hi")
	require.NoError(t, err)

	messages := session.Messages()
	messages[0].Content = "mutated"
	assert.Equal(t, "hi", session.Messages()[0].Content)
}
