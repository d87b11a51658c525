package data

import (
	"log"
	"sync"

	"github.com/quantlab/algotrader-kr/pkg/types"
)

// MemoryCache implements Cache using in-memory storage
type MemoryCache struct {
	cache map[string][]types.PriceBar
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.PriceBar),
	}
}

// Get retrieves bars from cache if available
func (c *MemoryCache) Get(key string) ([]types.PriceBar, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	bars, exists := c.cache[key]
	if exists {
		// Return a copy to prevent external modifications
		result := make([]types.PriceBar, len(bars))
		copy(result, bars)
		return result, true
	}

	return nil, false
}

// Set stores bars in cache
func (c *MemoryCache) Set(key string, bars []types.PriceBar) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make([]types.PriceBar, len(bars))
	copy(cached, bars)
	c.cache[key] = cached
}

// Clear removes all cached data
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[string][]types.PriceBar)
}

// Size returns the number of cached entries
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CachedProvider wraps another Provider with caching
type CachedProvider struct {
	provider Provider
	cache    Cache
}

// NewCachedProvider creates a cached provider with an in-memory cache
func NewCachedProvider(provider Provider) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    NewMemoryCache(),
	}
}

// NewCachedProviderWithCache creates a cached provider with a custom cache
func NewCachedProviderWithCache(provider Provider, cache Cache) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}
}

// GetName returns the name of the underlying provider with cache indication
func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadBars loads bars with caching to avoid re-reading files
func (p *CachedProvider) LoadBars(code string) ([]types.PriceBar, error) {
	if cached, exists := p.cache.Get(code); exists {
		return cached, nil
	}

	bars, err := p.provider.LoadBars(code)
	if err != nil {
		return nil, err
	}

	p.cache.Set(code, bars)
	log.Printf("✅ Loaded and cached %s (%d bars)", code, len(bars))
	return bars, nil
}

// ValidateBars validates bars using the underlying provider
func (p *CachedProvider) ValidateBars(bars []types.PriceBar) error {
	return p.provider.ValidateBars(bars)
}

// ClearCache clears all cached data
func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

// GetCacheSize returns the number of cached entries
func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}
