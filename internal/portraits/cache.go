// Package portraits caches generated entity portrait images on disk.
package portraits

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/prompts"
	"github.com/bookvision/bookvision/internal/providers"
	"github.com/bookvision/bookvision/internal/types"
)

// Cache serves entity portraits, generating them on first request.
// Concurrent requests for the same portrait share one generation via
// singleflight. A failed generation leaves no portrait behind, so the
// next request simply misses and tries again; only successes persist.
type Cache struct {
	registry *providers.Registry
	home     *home.Dir
	provider string
	style    string
	seedBase int
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	versions map[string]int
}

// NewCache creates a portrait cache. provider names the image provider
// registry entry; style and seedBase control portrait rendering.
func NewCache(registry *providers.Registry, homeDir *home.Dir, provider, style string, seedBase int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if style == "" {
		style = "storybook"
	}
	if seedBase == 0 {
		seedBase = 42
	}
	return &Cache{
		registry: registry,
		home:     homeDir,
		provider: provider,
		style:    style,
		seedBase: seedBase,
		logger:   logger,
		versions: make(map[string]int),
	}
}

func cacheKey(bookID, name string) string {
	return bookID + "/" + name
}

// Get returns the portrait path for an entity, generating the image if
// it does not exist yet. entityIndex is the entity's position in the
// book's analysis and pins the portrait's seed.
// A failed generation returns NotFoundError but is not remembered: the
// portrait is simply absent and the next Get tries again.
func (c *Cache) Get(ctx context.Context, bookID string, entity types.Entity, entityIndex int) (string, error) {
	key := cacheKey(bookID, entity.Name)
	path := c.home.EntityImagePath(bookID, entity.Name)

	if c.exists(path) {
		return path, nil
	}

	return c.generate(ctx, key, path, bookID, entity, entityIndex)
}

// Regenerate forces a fresh portrait for the entity even when one
// already exists, bumping the portrait's version so cached URLs can be
// busted.
func (c *Cache) Regenerate(ctx context.Context, bookID string, entity types.Entity, entityIndex int) (string, error) {
	key := cacheKey(bookID, entity.Name)
	path := c.home.EntityImagePath(bookID, entity.Name)

	c.mu.Lock()
	c.versions[key]++
	c.mu.Unlock()

	return c.generate(ctx, key, path, bookID, entity, entityIndex)
}

// Version returns the portrait's version counter, starting at 0 and
// incremented by each Regenerate.
func (c *Cache) Version(bookID, name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[cacheKey(bookID, name)]
}

// generate renders and stores the portrait, deduplicating concurrent
// callers on the cache key.
func (c *Cache) generate(ctx context.Context, key, path, bookID string, entity types.Entity, entityIndex int) (string, error) {
	_, err, _ := c.group.Do(key, func() (any, error) {
		img, err := c.registry.GetImage(c.provider)
		if err != nil {
			return nil, err
		}
		if err := c.home.EnsureBookDirs(bookID); err != nil {
			return nil, err
		}

		result, err := img.Generate(ctx, &providers.ImageRequest{
			Prompt: prompts.BuildEntityImagePrompt(entity.Name, string(entity.Role), entity.VisualDescription),
			Style:  c.style,
			Seed:   c.seedBase + entityIndex + 1,
		})
		if err != nil {
			return nil, err
		}
		if !result.Success {
			return nil, fmt.Errorf("portrait generation failed: %s", result.ErrorMessage)
		}
		if err := os.WriteFile(path, result.Image, 0o644); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		c.logger.Warn("portrait generation failed", "book_id", bookID, "entity", entity.Name, "error", err)
		return "", &types.NotFoundError{Resource: "asset", ID: key}
	}

	return path, nil
}

func (c *Cache) exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
