package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/wata-gateway/internal/obs"
)

// KeyFetcher retrieves the provider's signing key from its distribution endpoint.
type KeyFetcher interface {
	PublicKey(ctx context.Context) (string, error)
}

// KeyCache is a single-slot, lazily populated cache for the provider public
// key. The key is fetched at most once per process lifetime unless
// Invalidate is called (key rotation). Redundant concurrent fetches on a
// cold cache are harmless; both store the same key.
type KeyCache struct {
	Fetcher KeyFetcher
	Logger  zerolog.Logger

	mu  sync.RWMutex
	pem string
}

// NewKeyCache constructs a KeyCache backed by the given fetcher.
func NewKeyCache(fetcher KeyFetcher, logger zerolog.Logger) *KeyCache {
	return &KeyCache{Fetcher: fetcher, Logger: logger}
}

// Get returns the cached PEM key, fetching it on first use. A failed fetch
// returns absent without caching, so the next call retries.
func (c *KeyCache) Get(ctx context.Context) (string, bool) {
	c.mu.RLock()
	cached := c.pem
	c.mu.RUnlock()
	if cached != "" {
		return cached, true
	}
	if c.Fetcher == nil {
		return "", false
	}

	pem, err := c.Fetcher.PublicKey(ctx)
	if err != nil {
		c.Logger.Warn().Err(err).Msg("fetch wata public key")
		countKeyFetch("error")
		return "", false
	}
	if strings.TrimSpace(pem) == "" {
		countKeyFetch("empty")
		return "", false
	}

	c.mu.Lock()
	c.pem = pem
	c.mu.Unlock()
	countKeyFetch("success")
	return pem, true
}

// Invalidate clears the cached key so the next Get fetches a fresh one.
func (c *KeyCache) Invalidate() {
	c.mu.Lock()
	c.pem = ""
	c.mu.Unlock()
}

func countKeyFetch(result string) {
	if obs.PublicKeyFetchTotal != nil {
		obs.PublicKeyFetchTotal.WithLabelValues(result).Inc()
	}
}
