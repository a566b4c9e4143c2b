package backend

import (
	"fmt"
	"sync"

	"github.com/llmrouter/core/internal/registry"
)

// Pool is the backend client pool from spec section 2: one client per model
// key, constructed lazily on first use, cached, and resolvable by either the
// registry key or the provider-native model name (registry.Resolve already
// folds those two namespaces together).
//
// Construction failures (ConfigError, most commonly a missing credential)
// are cached too, so a model with no credential doesn't retry construction
// on every request — it stays unresolvable until the pool is rebuilt.
type Pool struct {
	mu        sync.Mutex
	reg       *registry.Registry
	factories map[registry.Provider]Factory
	clients   map[string]Client
	errs      map[string]error
}

// NewPool builds a pool bound to reg, dispatching construction to factories
// by provider tag. A provider with no registered factory simply can never
// resolve a client (ConfigError on first Resolve).
func NewPool(reg *registry.Registry, factories map[registry.Provider]Factory) *Pool {
	return &Pool{
		reg:       reg,
		factories: factories,
		clients:   make(map[string]Client),
		errs:      make(map[string]error),
	}
}

// Resolve returns the Client for keyOrAlias, constructing and caching it on
// first use. Two concurrent first-uses of the same key may both run the
// factory; only one constructed instance is retained, the other discarded.
func (p *Pool) Resolve(keyOrAlias string) (Client, error) {
	canonicalKey, ok := p.reg.Resolve(keyOrAlias)
	if !ok {
		return nil, fmt.Errorf("backend pool: unknown model %q", keyOrAlias)
	}

	p.mu.Lock()
	if c, ok := p.clients[canonicalKey]; ok {
		p.mu.Unlock()
		return c, nil
	}
	if err, ok := p.errs[canonicalKey]; ok {
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	d, ok := p.reg.Get(canonicalKey)
	if !ok {
		return nil, fmt.Errorf("backend pool: model %q vanished from registry", canonicalKey)
	}
	factory, ok := p.factories[d.Provider]
	if !ok {
		err := &ConfigError{ModelKey: canonicalKey, Reason: fmt.Sprintf("no backend factory registered for provider %q", d.Provider)}
		p.mu.Lock()
		p.errs[canonicalKey] = err
		p.mu.Unlock()
		return nil, err
	}

	client, err := factory(d)

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.clients[canonicalKey]; ok {
		return existing, nil
	}
	if err != nil {
		p.errs[canonicalKey] = err
		return nil, err
	}
	p.clients[canonicalKey] = client
	return client, nil
}

// Evict drops any cached client or cached error for key, forcing the next
// Resolve to reconstruct it. Used by admin tooling and tests; the core
// routing/service path never needs it.
func (p *Pool) Evict(keyOrAlias string) {
	canonicalKey, ok := p.reg.Resolve(keyOrAlias)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, canonicalKey)
	delete(p.errs, canonicalKey)
}
