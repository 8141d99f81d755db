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

// Package compiler freezes route declarations into immutable compiled
// routes: a precompiled path matcher, sorted positional-index bookkeeping,
// and capability flags the dispatcher uses to skip extraction branches.
// Compilation runs once per route at startup and every failure aborts
// startup rather than surfacing per request.
package compiler

import (
	"reflect"
	"sort"

	"github.com/armature-dev/armature/metadata"
)

// CompiledRoute is a frozen route. It is built exactly once during the
// compile phase, never mutated afterward, and therefore safe for
// unsynchronized concurrent reads for the process lifetime.
type CompiledRoute struct {
	Def *metadata.RouteDefinition

	// Method and FullPath are the definition's method and path with the
	// owning controller's prefix applied.
	Method   string
	FullPath string

	// Matcher is the anchored path matcher compiled from FullPath.
	Matcher *PathMatcher

	// Middleware is controller middleware followed by route middleware.
	Middleware []metadata.Middleware

	// ParamIndices and DepIndices are the declared positional indices,
	// ascending. Gaps between them are legal and stay empty after merge.
	ParamIndices []int
	DepIndices   []int

	// MaxArgIndex is the highest declared positional index, or -1 when
	// the route declares neither parameters nor dependencies. The merged
	// argument array has length MaxArgIndex+1.
	MaxArgIndex int

	// Capability flags. The dispatcher consults these to skip whole
	// extraction categories for routes that never use them.
	HasBody      bool
	HasQuery     bool
	HasPathParam bool
	HasHeader    bool
	HasCookie    bool
}

// Identity returns the route identity key, e.g. "UserController.show".
func (r *CompiledRoute) Identity() string {
	return r.Def.Key()
}

// AuthMandatory reports whether the route requires an authenticated
// principal.
func (r *CompiledRoute) AuthMandatory() bool {
	return r.Def.AuthMandatory
}

// Compile freezes one route definition. ctrl may be nil for routes whose
// owner has no controller declaration; when present its prefix is
// prepended to the path and its middleware runs before route middleware.
func Compile(def *metadata.RouteDefinition, ctrl *metadata.ControllerDefinition) (*CompiledRoute, error) {
	key := def.Key()

	if def.Method == "" {
		return nil, misconfigured(key, "missing HTTP method")
	}
	if def.Path == "" {
		return nil, misconfigured(key, "missing path template")
	}
	if err := checkBody(key, def.Body); err != nil {
		return nil, err
	}

	path := def.Path
	var mw []metadata.Middleware
	if ctrl != nil {
		path = joinPrefix(ctrl.Prefix, path)
		mw = append(mw, ctrl.Middleware...)
	}
	mw = append(mw, def.Middleware...)

	matcher, err := compilePath(path)
	if err != nil {
		return nil, &MisconfigurationError{Route: key, Reason: err.Error(), Err: err}
	}

	cr := &CompiledRoute{
		Def:        def,
		Method:     def.Method,
		FullPath:   path,
		Matcher:    matcher,
		Middleware: mw,
	}

	for idx, p := range def.Params {
		cr.ParamIndices = append(cr.ParamIndices, idx)

		switch p.Source {
		case metadata.SourceBody:
			cr.HasBody = true
		case metadata.SourceQuery, metadata.SourceQueryMap:
			cr.HasQuery = true
		case metadata.SourcePathParam, metadata.SourcePathParamMap:
			cr.HasPathParam = true
		case metadata.SourceHeader, metadata.SourceHeaderMap:
			cr.HasHeader = true
		case metadata.SourceCookie, metadata.SourceCookieMap:
			cr.HasCookie = true
		}
	}
	for idx := range def.Dependencies {
		if _, taken := def.Params[idx]; taken {
			return nil, misconfigured(key, "parameter and dependency both declared at index %d", idx)
		}
		cr.DepIndices = append(cr.DepIndices, idx)
	}
	sort.Ints(cr.ParamIndices)
	sort.Ints(cr.DepIndices)

	cr.MaxArgIndex = -1
	if n := len(cr.ParamIndices); n > 0 {
		cr.MaxArgIndex = cr.ParamIndices[n-1]
	}
	if n := len(cr.DepIndices); n > 0 && cr.DepIndices[n-1] > cr.MaxArgIndex {
		cr.MaxArgIndex = cr.DepIndices[n-1]
	}

	return cr, nil
}

// CompileAll freezes every route in the store in registration order.
// Identity-key conflicts recorded by the store fail the whole batch.
func CompileAll(store *metadata.Store) ([]*CompiledRoute, error) {
	if conflicts := store.Conflicts(); len(conflicts) > 0 {
		return nil, misconfigured(conflicts[0], "executable body declared more than once")
	}

	defs := store.Routes()
	out := make([]*CompiledRoute, 0, len(defs))
	for _, def := range defs {
		cr, err := Compile(def, store.Controller(def.Owner))
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}

	return out, nil
}

// checkBody validates the executable body variant at startup. A missing
// declarative method is a programmer error and must never become a
// per-request failure.
func checkBody(key string, body metadata.Body) error {
	switch b := body.(type) {
	case metadata.Functional:
		if b.Handler == nil {
			return misconfigured(key, "functional body has nil handler")
		}
	case metadata.Declarative:
		if b.Method == "" {
			return misconfigured(key, "declarative body has empty method name")
		}
		if b.Owner != nil && !hasMethod(b.Owner, b.Method) {
			return misconfigured(key, "type %s has no method %s", b.Owner, b.Method)
		}
	case nil:
		return misconfigured(key, "no executable body declared")
	default:
		return misconfigured(key, "unknown body kind %T", body)
	}

	return nil
}

func hasMethod(t reflect.Type, name string) bool {
	if _, ok := t.MethodByName(name); ok {
		return true
	}
	if t.Kind() != reflect.Pointer {
		_, ok := reflect.PointerTo(t).MethodByName(name)

		return ok
	}

	return false
}

func joinPrefix(prefix, path string) string {
	if prefix == "" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		prefix = prefix[:len(prefix)-1]
	}

	return prefix + path
}
