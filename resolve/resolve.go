// Copyright 2025 The Armature Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolve

import (
	"context"
	"fmt"
	"sync"
)

// Scope controls how many instances of a provider may coexist.
type Scope string

const (
	// ScopeSingleton builds one instance per provider for the lifetime of
	// the container. The instance is built lazily on first resolution and
	// shared by every subsequent resolution, regardless of context.
	ScopeSingleton Scope = "singleton"

	// ScopeRequest builds one instance per (provider, ResolutionContext)
	// pair. Distinct contexts never share an instance.
	ScopeRequest Scope = "request"

	// ScopeTransient builds a fresh instance on every resolution call.
	ScopeTransient Scope = "transient"
)

// Valid reports whether s is one of the three supported scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeSingleton, ScopeRequest, ScopeTransient:
		return true
	}

	return false
}

// Factory constructs a provider instance. Factories may block on I/O
// (opening a connection, reading configuration) and must honor ctx.
type Factory func(ctx context.Context) (any, error)

// Resolver resolves a provider identifier to an instance under a scope.
// The ResolutionContext threads request-scoped instances through one request.
type Resolver interface {
	Resolve(ctx context.Context, provider string, scope Scope, rc *ResolutionContext) (any, error)
}

// Container is the default Resolver implementation: a provider registry
// with per-scope instance management. The zero value is not usable; create
// one with NewContainer.
//
// Containers are safe for concurrent use. Singleton instances are built
// exactly once even under concurrent first resolution.
type Container struct {
	mu        sync.RWMutex
	providers map[string]*providerEntry
}

// providerEntry holds one registered provider. The once/instance pair
// implements lazy singleton construction.
type providerEntry struct {
	name     string
	factory  Factory
	scope    Scope
	once     sync.Once
	instance any
	err      error
}

// NewContainer creates an empty provider registry.
func NewContainer() *Container {
	return &Container{providers: make(map[string]*providerEntry)}
}

// Register binds a factory to a provider name with a default scope.
// Registering the same name twice replaces the earlier binding, including
// any singleton instance already built from it.
func (c *Container) Register(name string, scope Scope, factory Factory) error {
	if name == "" {
		return fmt.Errorf("resolve: %w", ErrEmptyProviderName)
	}
	if factory == nil {
		return fmt.Errorf("resolve: provider %q: %w", name, ErrNilFactory)
	}
	if !scope.Valid() {
		return fmt.Errorf("resolve: provider %q: %w: %q", name, ErrUnknownScope, scope)
	}

	c.mu.Lock()
	c.providers[name] = &providerEntry{name: name, factory: factory, scope: scope}
	c.mu.Unlock()

	return nil
}

// RegisterValue binds an already-built value under singleton scope.
func (c *Container) RegisterValue(name string, value any) error {
	return c.Register(name, ScopeSingleton, func(context.Context) (any, error) {
		return value, nil
	})
}

// Resolve returns an instance of the named provider under the given scope.
// An empty scope falls back to the scope the provider was registered with.
// Request scope requires a non-nil ResolutionContext.
func (c *Container) Resolve(ctx context.Context, provider string, scope Scope, rc *ResolutionContext) (any, error) {
	c.mu.RLock()
	entry, ok := c.providers[provider]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("resolve: provider %q: %w", provider, ErrUnknownProvider)
	}

	if scope == "" {
		scope = entry.scope
	}

	switch scope {
	case ScopeSingleton:
		entry.once.Do(func() {
			entry.instance, entry.err = entry.factory(ctx)
		})
		if entry.err != nil {
			return nil, fmt.Errorf("resolve: provider %q: %w", provider, entry.err)
		}

		return entry.instance, nil

	case ScopeRequest:
		if rc == nil {
			return nil, fmt.Errorf("resolve: provider %q: %w", provider, ErrNilResolutionContext)
		}

		return rc.instance(ctx, entry)

	case ScopeTransient:
		instance, err := entry.factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve: provider %q: %w", provider, err)
		}

		return instance, nil

	default:
		return nil, fmt.Errorf("resolve: provider %q: %w: %q", provider, ErrUnknownScope, scope)
	}
}

// Known reports whether a provider name is registered.
func (c *Container) Known(provider string) bool {
	c.mu.RLock()
	_, ok := c.providers[provider]
	c.mu.RUnlock()

	return ok
}

// ResolutionContext scopes request-lifetime instances to one request.
// The dispatcher creates one context at the start of request handling and
// discards it at the end; instances built inside it are never visible to
// resolutions using a different context.
type ResolutionContext struct {
	mu        sync.Mutex
	instances map[string]any
}

// NewResolutionContext creates an empty per-request resolution context.
func NewResolutionContext() *ResolutionContext {
	return &ResolutionContext{instances: make(map[string]any)}
}

// instance returns the context-local instance for entry, building it on
// first use. The per-context lock is held across the factory call: within
// one request resolution is sequential, and cross-request calls use
// different contexts, so the lock is uncontended in practice.
func (rc *ResolutionContext) instance(ctx context.Context, entry *providerEntry) (any, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if v, ok := rc.instances[entry.name]; ok {
		return v, nil
	}

	v, err := entry.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve: provider %q: %w", entry.name, err)
	}
	rc.instances[entry.name] = v

	return v, nil
}
