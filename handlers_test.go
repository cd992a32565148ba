package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palaver/config"
	"palaver/sdk"
)

func newTestApp(t *testing.T) (*App, *sdk.MockProvider) {
	t.Helper()

	cfg := config.Config{
		Port:          8080,
		Provider:      "mock",
		SystemPrompt:  "test prompt",
		StreamDelay:   0,
		ModelCacheTTL: 0, // cache default
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mock := sdk.NewMockProvider()

	app := NewApp(cfg, logger, mock)
	t.Cleanup(app.Close)
	return app, mock
}

func doRequest(t *testing.T, app *App, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	app.Routes().ServeHTTP(rec, req)
	return rec
}

// parseSSE splits a server-sent-events body into (event, data) pairs.
func parseSSE(body string) [][2]string {
	var events [][2]string
	for _, frame := range strings.Split(body, "\n\n") {
		event, data := "message", ""
		for _, line := range strings.Split(frame, "\n") {
			if strings.HasPrefix(line, "event: ") {
				event = strings.TrimPrefix(line, "event: ")
			} else if strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		if data != "" {
			events = append(events, [2]string{event, data})
		}
	}
	return events
}

func TestChatStreamsReplyWordByWord(t *testing.T) {
	app, mock := newTestApp(t)
	mock.QueueTextResponse("Hello from the mock provider")

	rec := doRequest(t, app, "POST", "/api/chat", `{"message": "hi there"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseSSE(rec.Body.String())
	require.NotEmpty(t, events)

	var sessionID string
	var reply strings.Builder
	var sawDone bool
	for _, ev := range events {
		switch ev[0] {
		case "session":
			var s SessionResponse
			require.NoError(t, json.Unmarshal([]byte(ev[1]), &s))
			sessionID = s.SessionID
		case "delta":
			var d map[string]string
			require.NoError(t, json.Unmarshal([]byte(ev[1]), &d))
			reply.WriteString(d["content"])
		case "done":
			sawDone = true
		}
	}

	assert.NotEmpty(t, sessionID)
	assert.Equal(t, "Hello from the mock provider", reply.String())
	assert.True(t, sawDone)

	// Each word travelled as its own delta.
	var deltas int
	for _, ev := range events {
		if ev[0] == "delta" {
			deltas++
		}
	}
	assert.Equal(t, 5, deltas)

	// The provider saw the system prompt and the user message.
	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "test prompt", calls[0].SystemPrompt)
	require.Len(t, calls[0].Messages, 1)
	assert.Equal(t, "hi there", calls[0].Messages[0].Content)

	// The transcript now has both sides.
	rec = doRequest(t, app, "GET", "/api/history?session_id="+sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hi there", history.Messages[0].Content)
	assert.Equal(t, "Hello from the mock provider", history.Messages[1].Content)
}

func TestChatContinuesSession(t *testing.T) {
	app, mock := newTestApp(t)
	mock.QueueTextResponse("first")
	mock.QueueTextResponse("second")

	rec := doRequest(t, app, "POST", "/api/chat", `{"message": "one"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	events := parseSSE(rec.Body.String())
	var s SessionResponse
	require.NoError(t, json.Unmarshal([]byte(events[0][1]), &s))

	rec = doRequest(t, app, "POST", "/api/chat",
		`{"session_id": "`+s.SessionID+`", "message": "two"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := mock.GetCalls()
	require.Len(t, calls, 2)
	// Second call carries the full history.
	require.Len(t, calls[1].Messages, 3)
	assert.Equal(t, "one", calls[1].Messages[0].Content)
	assert.Equal(t, "first", calls[1].Messages[1].Content)
	assert.Equal(t, "two", calls[1].Messages[2].Content)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "POST", "/api/chat", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsBadJSON(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "POST", "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatProviderFailure(t *testing.T) {
	app, mock := newTestApp(t)
	mock.QueueError(errors.New("model overloaded"))

	rec := doRequest(t, app, "POST", "/api/chat", `{"message": "hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "model overloaded")
}

func TestHistoryUnknownSession(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "GET", "/api/history?session_id=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewSessionAndReset(t *testing.T) {
	app, mock := newTestApp(t)
	mock.QueueTextResponse("reply")

	rec := doRequest(t, app, "POST", "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var s SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.NotEmpty(t, s.SessionID)

	rec = doRequest(t, app, "POST", "/api/chat",
		`{"session_id": "`+s.SessionID+`", "message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, app, "POST", "/api/reset", `{"session_id": "`+s.SessionID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, app, "GET", "/api/history?session_id="+s.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Empty(t, history.Messages)
}

func TestResetUnknownSession(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "POST", "/api/reset", `{"session_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModelsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "GET", "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ModelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mock", resp.Provider)
	require.Len(t, resp.Models, 1)
	assert.Equal(t, "mock-model", resp.Models[0].ID)
}

func TestSchemaEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "GET", "/api/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_id")
	assert.Contains(t, rec.Body.String(), "chat_request")
}

func TestHealthz(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "GET", "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "mock", resp["provider"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, mock := newTestApp(t)
	mock.QueueTextResponse("one two three")
	doRequest(t, app, "POST", "/api/chat", `{"message": "hi"}`)

	rec := doRequest(t, app, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "palaver_chat_turns_total")
}

func TestIndexPage(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doRequest(t, app, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>palaver</title>")
}
