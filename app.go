package main

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"palaver/chat"
	"palaver/config"
	"palaver/metrics"
	"palaver/provider"
)

// App owns the chat sessions and the pieces the HTTP handlers need.
// Sessions live in process memory only; a restart starts everyone over.
type App struct {
	cfg        config.Config
	logger     *slog.Logger
	provider   provider.Provider
	metrics    *metrics.Recorder
	modelCache *provider.ModelCache

	sessionsMu sync.RWMutex
	sessions   map[string]*chat.Session
}

// NewApp wires an application around the given provider.
func NewApp(cfg config.Config, logger *slog.Logger, prov provider.Provider) *App {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		cfg:        cfg,
		logger:     logger,
		provider:   prov,
		metrics:    metrics.NewRecorder(),
		modelCache: provider.NewModelCache(cfg.ModelCacheTTL),
		sessions:   make(map[string]*chat.Session),
	}
	app.modelCache.StartBackgroundRefresh(prov.ListModels)
	return app
}

// Close releases background resources.
func (a *App) Close() {
	a.modelCache.StopBackgroundRefresh()
}

// CreateSession starts a fresh conversation under a new UUID.
func (a *App) CreateSession() *chat.Session {
	session := chat.NewSession(uuid.NewString(), a.provider, a.cfg.SystemPrompt)

	a.sessionsMu.Lock()
	a.sessions[session.ID()] = session
	a.sessionsMu.Unlock()

	a.metrics.SessionOpened()
	a.logger.Debug("session created", "session_id", session.ID())
	return session
}

// Session looks up an existing conversation.
func (a *App) Session(id string) (*chat.Session, bool) {
	a.sessionsMu.RLock()
	defer a.sessionsMu.RUnlock()
	session, ok := a.sessions[id]
	return session, ok
}

// SessionOrNew resolves the given ID, falling back to a fresh session
// when the ID is blank or no longer known (e.g. after a restart).
func (a *App) SessionOrNew(id string) *chat.Session {
	if id != "" {
		if session, ok := a.Session(id); ok {
			return session
		}
	}
	return a.CreateSession()
}

// RemoveSession drops a conversation entirely.
func (a *App) RemoveSession(id string) bool {
	a.sessionsMu.Lock()
	_, ok := a.sessions[id]
	delete(a.sessions, id)
	a.sessionsMu.Unlock()

	if ok {
		a.metrics.SessionClosed()
	}
	return ok
}

// SessionCount reports how many conversations are held in memory.
func (a *App) SessionCount() int {
	a.sessionsMu.RLock()
	defer a.sessionsMu.RUnlock()
	return len(a.sessions)
}
