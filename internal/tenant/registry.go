// Package tenant holds the connection registry for multi-tenant routing. The
// pool for a tenant is resolved once per request (middleware) and threaded
// through the request context; nothing in the service mutates shared
// connection state.
package tenant

import (
	"context"
	"sort"
	"sync"

	"github.com/vanbook/backend/internal/utils"
)

type contextKey string

// ContextKeyTenant holds the tenant code for the current request.
const ContextKeyTenant contextKey = "tenant_code"

// DefaultTenant is used when a request carries no X-Tenant-Code header.
const DefaultTenant = "default"

// Registry maps tenant codes to their connection pools. Pools are registered
// at startup; lookups are read-only afterwards, so a plain RWMutex suffices.
type Registry[P any] struct {
	mu    sync.RWMutex
	pools map[string]P
}

func NewRegistry[P any]() *Registry[P] {
	return &Registry[P]{pools: make(map[string]P)}
}

// Register installs the pool for a tenant code, replacing any previous one.
func (r *Registry[P]) Register(code string, pool P) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[code] = pool
}

// Pool returns the pool for the given tenant code.
func (r *Registry[P]) Pool(code string) (P, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.pools[code]
	if !ok {
		var zero P
		return zero, utils.ErrUnknownTenant
	}
	return pool, nil
}

// Codes lists the registered tenant codes, sorted for stable logging.
func (r *Registry[P]) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.pools))
	for code := range r.pools {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// WithTenant returns a context carrying the tenant code.
func WithTenant(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, ContextKeyTenant, code)
}

// FromContext extracts the tenant code, falling back to DefaultTenant.
func FromContext(ctx context.Context) string {
	if code, ok := ctx.Value(ContextKeyTenant).(string); ok && code != "" {
		return code
	}
	return DefaultTenant
}
