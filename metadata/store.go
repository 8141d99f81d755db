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

package metadata

import (
	"sort"
	"sync"
)

// ControllerDefinition attaches a path prefix and middleware to every
// route owned by a type. The compiler prepends both when freezing routes.
type ControllerDefinition struct {
	Owner      string
	Prefix     string
	Middleware []Middleware
}

// Store collects route and controller declarations during startup. One
// Store exists per application instance; there is no process-wide
// registry. Registration calls for the same identity key merge into one
// coherent record, so a route can be declared incrementally: one call for
// the path, one per parameter, one for the cache directive, and so on.
//
// Store is safe for concurrent use, though registration normally happens
// from a single startup goroutine.
type Store struct {
	mu          sync.RWMutex
	routes      map[string]*RouteDefinition
	order       []string // insertion order of identity keys
	controllers map[string]*ControllerDefinition
	conflicts   []string // identity keys whose executable body was declared twice
}

// NewStore creates an empty metadata store.
func NewStore() *Store {
	return &Store{
		routes:      make(map[string]*RouteDefinition),
		controllers: make(map[string]*ControllerDefinition),
	}
}

// RegisterRoute inserts def, or merges it into the existing record with
// the same identity key. Merge rules:
//
//   - middleware and invalidation patterns concatenate across calls
//   - parameter and dependency declarations merge per index, the latest
//     declaration for an index winning
//   - method, path, docs, cache directive, and body are replaced by the
//     most recent non-empty value and otherwise preserved
//   - the auth-mandatory flag is sticky once set
func (s *Store) RegisterRoute(def *RouteDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := def.Key()
	existing, ok := s.routes[key]
	if !ok {
		copied := *def
		s.routes[key] = &copied
		s.order = append(s.order, key)

		return
	}

	existing.Middleware = append(existing.Middleware, def.Middleware...)
	existing.Invalidate = append(existing.Invalidate, def.Invalidate...)

	for idx, p := range def.Params {
		if existing.Params == nil {
			existing.Params = make(map[int]ParameterDefinition)
		}
		existing.Params[idx] = p
	}
	for idx, d := range def.Dependencies {
		if existing.Dependencies == nil {
			existing.Dependencies = make(map[int]DependencyDefinition)
		}
		existing.Dependencies[idx] = d
	}

	if def.Method != "" {
		existing.Method = def.Method
	}
	if def.Path != "" {
		existing.Path = def.Path
	}
	if def.Docs != "" {
		existing.Docs = def.Docs
	}
	if def.Cache != nil {
		existing.Cache = def.Cache
	}
	if def.Body != nil {
		// Two declarations binding an executable body to one identity key
		// is a programmer error. The later body still lands so inspection
		// tools see something, but the compile phase refuses the store.
		if existing.Body != nil {
			s.conflicts = append(s.conflicts, key)
		}
		existing.Body = def.Body
	}
	if def.AuthMandatory {
		existing.AuthMandatory = true
	}
}

// RegisterController attaches a path prefix and middleware to an owning
// type. Repeated calls for the same owner concatenate middleware and
// replace a non-empty prefix.
func (s *Store) RegisterController(owner, prefix string, middleware ...Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.controllers[owner]
	if !ok {
		s.controllers[owner] = &ControllerDefinition{
			Owner:      owner,
			Prefix:     prefix,
			Middleware: middleware,
		}

		return
	}

	if prefix != "" {
		existing.Prefix = prefix
	}
	existing.Middleware = append(existing.Middleware, middleware...)
}

// Controller returns the controller declaration for an owner, or nil.
func (s *Store) Controller(owner string) *ControllerDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.controllers[owner]
}

// Routes returns all route definitions in registration order.
func (s *Store) Routes() []*RouteDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RouteDefinition, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.routes[key])
	}

	return out
}

// RoutesByOwner returns the definitions owned by one type, sorted by
// member name for stable controller-scoped listings.
func (s *Store) RoutesByOwner(owner string) []*RouteDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*RouteDefinition
	for _, key := range s.order {
		if def := s.routes[key]; def.Owner == owner {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member < out[j].Member })

	return out
}

// Lookup returns the definition for an identity key, or nil.
func (s *Store) Lookup(key string) *RouteDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.routes[key]
}

// Conflicts returns the identity keys that received more than one
// executable body declaration, in detection order. A non-empty result
// aborts compilation.
func (s *Store) Conflicts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.conflicts...)
}

// Len returns the number of distinct registered routes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.routes)
}

// Reset empties the store. Routes are otherwise not removable; Reset
// exists for test isolation only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes = make(map[string]*RouteDefinition)
	s.controllers = make(map[string]*ControllerDefinition)
	s.order = nil
	s.conflicts = nil
}
