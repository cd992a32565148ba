// Package chat implements the conversation loop at the heart of palaver.
//
// A turn is deliberately simple:
//
//	1. Append the user message to the in-memory history
//	2. Send the full history to the provider
//	3. Append the reply and hand it back
//
// Everything else in the repository is plumbing around this loop.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"palaver/provider"
)

// ErrEmptyMessage is returned when a turn is attempted with blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Session holds one conversation's in-memory history.
// History lives in process memory only and is lost on restart.
type Session struct {
	mu           sync.Mutex
	id           string
	provider     provider.Provider
	systemPrompt string
	messages     []provider.Message
	createdAt    time.Time
}

// NewSession creates an empty conversation bound to a provider.
func NewSession(id string, p provider.Provider, systemPrompt string) *Session {
	return &Session{
		id:           id,
		provider:     p,
		systemPrompt: systemPrompt,
		createdAt:    time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []provider.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Reset clears the history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Turn runs one request/response iteration: the user message is appended,
// the whole history goes to the provider, and the text reply is appended
// and returned. The lock is held across the provider call, so a session
// has at most one turn in flight.
func (s *Session) Turn(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, provider.Message{
		Role:    provider.RoleUser,
		Content: text,
	})

	reply, err := s.provider.Chat(ctx, s.systemPrompt, s.messages)
	if err != nil {
		// Failed turns leave no trace in the history, so resubmitting
		// the same message doesn't duplicate it.
		s.messages = s.messages[:len(s.messages)-1]
		return "", fmt.Errorf("inference failed: %w", err)
	}

	s.messages = append(s.messages, provider.Message{
		Role:    provider.RoleAssistant,
		Content: reply.Content,
	})

	return reply.Content, nil
}
