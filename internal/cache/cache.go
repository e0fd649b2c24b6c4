// Package cache is the in-memory TTL cache named in SPEC_FULL.md's ambient
// stack: a short-lived lookup (approved-tenant status, active-onboarding
// flag) whose Get ignores expired entries and whose robfig/cron sweep
// removes them, so a large, mostly-idle cache does not accumulate expired
// entries indefinitely between reads.
package cache

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type entry struct {
	value    any
	expireAt time.Time
}

// TTLCache is a goroutine-safe cache with a fixed per-entry TTL and a
// background sweep that evicts expired entries on a schedule.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	logger  *zap.Logger
	cron    *cron.Cron
}

// New builds a TTLCache with the given per-entry lifetime. Call Start to
// begin the periodic sweep.
func New(ttl time.Duration, logger *zap.Logger) *TTLCache {
	return &TTLCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		logger:  logger,
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expireAt) {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with this cache's configured TTL.
func (c *TTLCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expireAt: time.Now().Add(c.ttl)}
}

// Invalidate removes key immediately, used when a tenant's approval status
// changes and a stale cached result would otherwise survive until expiry.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Start begins a sweep that evicts expired entries on the given cron
// schedule. Safe to call once per TTLCache.
func (c *TTLCache) Start(schedule string) error {
	c.cron = cron.New()
	_, err := c.cron.AddFunc(schedule, c.sweep)
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the background sweep.
func (c *TTLCache) Stop() {
	if c.cron != nil {
		c.cron.Stop()
	}
}

func (c *TTLCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, e := range c.entries {
		if now.After(e.expireAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("cache sweep evicted expired entries", zap.Int("count", evicted))
	}
}
