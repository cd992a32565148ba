package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"

	"palaver/chat"
	"palaver/provider"
)

//go:embed static
var staticFS embed.FS

// Wire types for the JSON API.

// ChatRequest starts one chat turn.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty" jsonschema_description:"Session to continue; omit to start a new one"`
	Message   string `json:"message" jsonschema_description:"User message for this turn"`
}

// SessionResponse returns the session a reply belongs to.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

// HistoryResponse is the full transcript of one session.
type HistoryResponse struct {
	SessionID string             `json:"session_id"`
	Messages  []provider.Message `json:"messages"`
}

// ModelsResponse lists the models the active provider offers.
type ModelsResponse struct {
	Provider string               `json:"provider"`
	Models   []provider.ModelInfo `json:"models"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleChat runs one turn and replays the finished reply as an SSE
// word stream. The provider call itself is not streamed; the delay loop
// only simulates it.
func (a *App) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session := a.SessionOrNew(req.SessionID)

	start := time.Now()
	reply, err := session.Turn(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			a.metrics.ObserveTurn(a.provider.Name(), "empty", 0)
			writeError(w, http.StatusBadRequest, "message is empty")
			return
		}
		a.metrics.ObserveTurn(a.provider.Name(), "error", 0)
		a.logger.Error("turn failed", "session_id", session.ID(), "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	a.metrics.ObserveTurn(a.provider.Name(), "ok", time.Since(start))

	flusher, ok := w.(http.Flusher)
	if !ok {
		// No streaming support; fall back to the whole reply at once.
		writeJSON(w, http.StatusOK, map[string]string{
			"session_id": session.ID(),
			"reply":      reply,
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "session", SessionResponse{SessionID: session.ID()})
	flusher.Flush()

	words := 0
	for delta := range chat.Typewriter(r.Context(), reply, a.cfg.StreamDelay) {
		if delta.Error != nil {
			a.logger.Debug("stream interrupted", "session_id", session.ID(), "error", delta.Error)
			return
		}
		if delta.Content != "" {
			writeEvent(w, "delta", map[string]string{"content": delta.Content})
			flusher.Flush()
			words++
		}
		if delta.Done {
			break
		}
	}
	a.metrics.AddStreamedWords(words)

	writeEvent(w, "done", struct{}{})
	flusher.Flush()

	a.logger.Info("turn",
		"session_id", session.ID(),
		"history_len", session.Len(),
		"words", words,
		"duration", time.Since(start),
	)
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	session, ok := a.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		SessionID: session.ID(),
		Messages:  session.Messages(),
	})
}

func (a *App) handleNewSession(w http.ResponseWriter, r *http.Request) {
	session := a.CreateSession()
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: session.ID()})
}

func (a *App) handleReset(w http.ResponseWriter, r *http.Request) {
	var req SessionResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, ok := a.Session(req.SessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	session.Reset()
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: session.ID()})
}

func (a *App) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	models, err := a.modelCache.Models(ctx, a.provider.ListModels)
	if err != nil {
		a.logger.Error("list models failed", "provider", a.provider.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "listing models failed")
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{
		Provider: a.provider.Name(),
		Models:   models,
	})
}

// handleSchema serves reflected JSON Schemas for the wire types, so the
// API is self-describing without a separate docs build.
func (a *App) handleSchema(w http.ResponseWriter, r *http.Request) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemas := map[string]*jsonschema.Schema{
		"chat_request":     reflector.Reflect(&ChatRequest{}),
		"session_response": reflector.Reflect(&SessionResponse{}),
		"history_response": reflector.Reflect(&HistoryResponse{}),
		"models_response":  reflector.Reflect(&ModelsResponse{}),
	}
	writeJSON(w, http.StatusOK, schemas)
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": a.provider.Name(),
		"model":    a.provider.GetModel(),
		"sessions": a.SessionCount(),
	})
}

// Helpers

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
