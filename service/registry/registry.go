// Package registry exposes cross-cutting services (audit, secrets, cache,
// notifications, document storage) to modules through the invocation
// context, so module handlers stay decoupled from concrete backends.
package registry

import (
	"context"
	"sync"

	"github.com/modflow/modflow/service/audit"
	"github.com/modflow/modflow/service/secret"
)

// Cache is a lightweight key-value store shared across module invocations.
type Cache interface {
	Get(key string) (interface{}, bool)
	Put(key string, value interface{})
	Delete(key string)
}

// Notifier delivers user-facing notifications emitted by modules.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// DocumentStore reads and writes study documents by URL.
type DocumentStore interface {
	Read(ctx context.Context, URL string) ([]byte, error)
	Write(ctx context.Context, URL string, data []byte) error
}

// Services bundles the cross-cutting services available to modules.
type Services struct {
	Audit     audit.Service
	Secrets   *secret.Service
	Cache     Cache
	Notifier  Notifier
	Documents DocumentStore
}

// MemoryCache is the default Cache implementation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]interface{})}
}

func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

func (c *MemoryCache) Put(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithServices embeds the service bundle in ctx.
func WithServices(ctx context.Context, services *Services) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, services)
}

// FromContext extracts the service bundle, nil when absent.
func FromContext(ctx context.Context) *Services {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Services); ok {
		return v
	}
	return nil
}
