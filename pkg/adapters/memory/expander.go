package memory

import (
	"context"
	"strings"

	"github.com/aretw0/plotline/pkg/ports"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds how many expansions a CachedExpander keeps.
const DefaultCacheSize = 256

// CachedExpander memoizes successful expansions of identical concepts.
// Failures are never cached so a transient outage does not pin the fallback prompt.
type CachedExpander struct {
	next  ports.PromptExpander
	cache *lru.Cache[string, string]
}

// NewCachedExpander wraps next with an LRU cache of size entries.
func NewCachedExpander(next ports.PromptExpander, size int) (*CachedExpander, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedExpander{next: next, cache: cache}, nil
}

// Expand implements ports.PromptExpander.
func (c *CachedExpander) Expand(ctx context.Context, concept string) (string, error) {
	key := strings.TrimSpace(concept)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}
	text, err := c.next.Expand(ctx, concept)
	if err != nil {
		return "", err
	}
	if text != "" {
		c.cache.Add(key, text)
	}
	return text, nil
}

// Len reports the number of cached expansions.
func (c *CachedExpander) Len() int {
	return c.cache.Len()
}
