package provider

import (
	"context"
	"sort"
	"sync"
	"time"
)

// RefreshFunc fetches a fresh model list, typically Provider.ListModels.
type RefreshFunc func(ctx context.Context) ([]ModelInfo, error)

type cachedModel struct {
	Model     ModelInfo
	CachedAt  time.Time
	ExpiresAt time.Time
}

// ModelCache caches model listings with a TTL so the UI doesn't hit the
// provider's models endpoint on every page load. A background refresher
// keeps entries warm once they approach expiry.
type ModelCache struct {
	mu     sync.RWMutex
	models map[string]cachedModel
	ttl    time.Duration

	refreshFn     RefreshFunc
	refreshCtx    context.Context
	refreshCancel context.CancelFunc
	refreshWg     sync.WaitGroup
}

// NewModelCache creates a cache with the given TTL (default 5 minutes).
func NewModelCache(ttl time.Duration) *ModelCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &ModelCache{
		models: make(map[string]cachedModel),
		ttl:    ttl,
	}
}

// Models returns the cached listing, fetching through fn on a cold or
// fully expired cache. The result is sorted by model ID for stable output.
func (c *ModelCache) Models(ctx context.Context, fn RefreshFunc) ([]ModelInfo, error) {
	if cached := c.GetAll(); len(cached) > 0 {
		return cached, nil
	}

	models, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	c.SetAll(models)
	return c.GetAll(), nil
}

// Get returns a single cached model by ID.
func (c *ModelCache) Get(id string) (ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.models[id]
	if !ok {
		return ModelInfo{}, false
	}

	if c.isExpired(cached) {
		return ModelInfo{}, false
	}

	return cached.Model, true
}

// GetAll returns all unexpired entries sorted by ID.
func (c *ModelCache) GetAll() []ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var models []ModelInfo
	for _, cached := range c.models {
		if !c.isExpired(cached) {
			models = append(models, cached.Model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

// Set stores a single model entry.
func (c *ModelCache) Set(m ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.models[m.ID] = cachedModel{
		Model:     m,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
}

// SetAll stores a batch of model entries.
func (c *ModelCache) SetAll(models []ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, m := range models {
		c.models[m.ID] = cachedModel{
			Model:     m,
			CachedAt:  now,
			ExpiresAt: now.Add(c.ttl),
		}
	}
}

// Remove drops one entry.
func (c *ModelCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.models, id)
}

// Clear drops everything.
func (c *ModelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = make(map[string]cachedModel)
}

func (c *ModelCache) isExpired(cached cachedModel) bool {
	return time.Now().After(cached.ExpiresAt)
}

// PruneExpired removes entries past their TTL.
func (c *ModelCache) PruneExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, cached := range c.models {
		if now.After(cached.ExpiresAt) {
			delete(c.models, id)
		}
	}
}

// Size reports the number of entries, expired or not.
func (c *ModelCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// StartBackgroundRefresh re-fetches the model list whenever cached
// entries approach expiry. Calling it twice is a no-op.
func (c *ModelCache) StartBackgroundRefresh(refreshFn RefreshFunc) {
	c.mu.Lock()
	if c.refreshCancel != nil {
		c.mu.Unlock()
		return
	}
	c.refreshFn = refreshFn
	c.refreshCtx, c.refreshCancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.refreshWg.Add(1)
	go c.backgroundRefreshLoop()
}

// StopBackgroundRefresh cancels the refresher and waits for it to exit.
func (c *ModelCache) StopBackgroundRefresh() {
	c.mu.Lock()
	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshCancel = nil
	}
	c.mu.Unlock()
	c.refreshWg.Wait()
}

func (c *ModelCache) backgroundRefreshLoop() {
	defer c.refreshWg.Done()

	checkInterval := c.ttl / 4
	minInterval := time.Second
	if c.ttl < 10*time.Second {
		minInterval = 10 * time.Millisecond
	}
	if checkInterval < minInterval {
		checkInterval = minInterval
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.refreshCtx.Done():
			return
		case <-ticker.C:
			c.refreshIfNeeded()
		}
	}
}

func (c *ModelCache) refreshIfNeeded() {
	c.mu.RLock()
	refreshFn := c.refreshFn
	ctx := c.refreshCtx
	if refreshFn == nil || ctx == nil {
		c.mu.RUnlock()
		return
	}

	refreshThreshold := c.ttl * 80 / 100
	now := time.Now()
	needsRefresh := false
	hasValidEntries := false

	for _, cached := range c.models {
		timeUntilExpiry := cached.ExpiresAt.Sub(now)
		if timeUntilExpiry > 0 {
			hasValidEntries = true
			if timeUntilExpiry <= refreshThreshold {
				needsRefresh = true
				break
			}
		}
	}

	if !hasValidEntries && len(c.models) > 0 {
		needsRefresh = true
	}
	c.mu.RUnlock()

	if !needsRefresh {
		return
	}

	models, err := refreshFn(ctx)
	if err != nil {
		return
	}

	c.SetAll(models)
}
