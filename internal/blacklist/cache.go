package blacklist

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/itchan-dev/community/internal/domain"
	"github.com/itchan-dev/community/internal/logger"
)

// Storage is the read side needed to populate the cache.
type Storage interface {
	BlacklistItems(ctx context.Context) ([]domain.BlacklistItem, error)
}

type compiledItem struct {
	item domain.BlacklistItem
	re   *regexp.Regexp
}

// Cache keeps every blacklist item in memory so that registration screening
// never waits on the database.
type Cache struct {
	storage        Storage
	items          []compiledItem
	mu             sync.RWMutex
	lastUpdateTime time.Time
}

func NewCache(storage Storage) *Cache {
	return &Cache{storage: storage}
}

// Update reloads all items from storage and atomically replaces the cache.
// Items with a pattern that does not compile are skipped.
func (c *Cache) Update(ctx context.Context) error {
	items, err := c.storage.BlacklistItems(ctx)
	if err != nil {
		return err
	}

	compiled := make([]compiledItem, 0, len(items))
	for _, item := range items {
		re, err := item.Regexp()
		if err != nil {
			logger.Log.Warn("skipping invalid blacklist pattern",
				"component", "blacklist_cache",
				"pattern", item.Pattern,
				"error", err)
			continue
		}
		compiled = append(compiled, compiledItem{item: item, re: re})
	}

	c.mu.Lock()
	c.items = compiled
	c.lastUpdateTime = time.Now()
	c.mu.Unlock()

	logger.Log.Info("blacklist cache updated",
		"component", "blacklist_cache",
		"entries", len(compiled))
	return nil
}

// Check returns the policy that applies to email. Block wins over request.
// An empty result means the address is not listed.
func (c *Cache) Check(email domain.Email) domain.BlacklistType {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result domain.BlacklistType
	for _, ci := range c.items {
		if !ci.re.MatchString(email) {
			continue
		}
		if ci.item.Type == domain.BlacklistTypeBlock {
			return domain.BlacklistTypeBlock
		}
		result = domain.BlacklistTypeRequest
	}
	return result
}

// Items returns a copy of the cached items.
func (c *Cache) Items() []domain.BlacklistItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]domain.BlacklistItem, len(c.items))
	for i, ci := range c.items {
		items[i] = ci.item
	}
	return items
}

func (c *Cache) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateTime
}

// StartBackgroundUpdate periodically refreshes the cache until ctx is done.
func (c *Cache) StartBackgroundUpdate(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started blacklist cache background updates",
		"component", "blacklist_cache",
		"interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Update(ctx); err != nil {
					logger.Log.Error("blacklist cache update failed",
						"component", "blacklist_cache",
						"error", err)
				}
			case <-ctx.Done():
				logger.Log.Info("blacklist cache shutting down gracefully",
					"component", "blacklist_cache")
				return
			}
		}
	}()
}
