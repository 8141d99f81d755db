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

package armature

import (
	"reflect"
	"time"

	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/resolve"
	"github.com/armature-dev/armature/validation"
)

// RouteBuilder declares one route through chained calls. Every call
// issues a merge into the metadata store immediately, so partially built
// routes are legal intermediate states; the compile phase validates the
// final record.
type RouteBuilder struct {
	store  *metadata.Store
	owner  string
	member string
}

func (b *RouteBuilder) merge(def *metadata.RouteDefinition) *RouteBuilder {
	def.Owner = b.owner
	def.Member = b.member
	b.store.RegisterRoute(def)

	return b
}

// Param declares a positional parameter.
func (b *RouteBuilder) Param(p metadata.ParameterDefinition) *RouteBuilder {
	return b.merge((&metadata.RouteDefinition{}).ParamAt(p))
}

// PathParam binds a captured path segment at the given argument index.
func (b *RouteBuilder) PathParam(index int, name string) *RouteBuilder {
	return b.Param(metadata.ParameterDefinition{
		Index: index, Source: metadata.SourcePathParam, Name: name, Required: true,
	})
}

// Query binds a named query value at the given argument index.
func (b *RouteBuilder) Query(index int, name string) *RouteBuilder {
	return b.Param(metadata.ParameterDefinition{
		Index: index, Source: metadata.SourceQuery, Name: name,
	})
}

// Header binds a named request header at the given argument index.
func (b *RouteBuilder) Header(index int, name string) *RouteBuilder {
	return b.Param(metadata.ParameterDefinition{
		Index: index, Source: metadata.SourceHeader, Name: name,
	})
}

// Body binds the parsed request payload at the given argument index,
// validated against schema when non-nil.
func (b *RouteBuilder) Body(index int, schema validation.Schema) *RouteBuilder {
	return b.Param(metadata.ParameterDefinition{
		Index: index, Source: metadata.SourceBody, Schema: schema, Required: true,
	})
}

// Principal binds the authenticated-principal slot at the given index.
func (b *RouteBuilder) Principal(index int) *RouteBuilder {
	return b.Param(metadata.ParameterDefinition{Index: index, Source: metadata.SourcePrincipal})
}

// Dependency binds a resolver-provided instance at the given index.
func (b *RouteBuilder) Dependency(index int, provider string, scope resolve.Scope) *RouteBuilder {
	return b.merge((&metadata.RouteDefinition{}).DependencyAt(metadata.DependencyDefinition{
		Index: index, Provider: provider, Scope: scope,
	}))
}

// Use appends route middleware.
func (b *RouteBuilder) Use(mw ...metadata.Middleware) *RouteBuilder {
	return b.merge(&metadata.RouteDefinition{Middleware: mw})
}

// Cache attaches a result-cache directive.
func (b *RouteBuilder) Cache(ttl time.Duration) *RouteBuilder {
	return b.merge(&metadata.RouteDefinition{Cache: &metadata.CacheDirective{TTL: ttl}})
}

// CacheWith attaches a fully specified cache directive.
func (b *RouteBuilder) CacheWith(directive metadata.CacheDirective) *RouteBuilder {
	return b.merge(&metadata.RouteDefinition{Cache: &directive})
}

// Invalidate appends cache invalidation patterns; `{name}` and `:name`
// placeholders substitute path parameters per request.
func (b *RouteBuilder) Invalidate(patterns ...string) *RouteBuilder {
	return b.merge(&metadata.RouteDefinition{Invalidate: patterns})
}

// RequireAuth flags the route as needing an authenticated principal.
func (b *RouteBuilder) RequireAuth() *RouteBuilder {
	return b.merge(&metadata.RouteDefinition{AuthMandatory: true})
}

// Docs attaches a documentation string.
func (b *RouteBuilder) Docs(text string) *RouteBuilder {
	return b.merge(&metadata.RouteDefinition{Docs: text})
}

// ControllerBuilder declares method routes for one owning type.
type ControllerBuilder struct {
	store *metadata.Store
	owner string
}

// Method declares a declarative route: per request, one transient
// instance of the owning type is built through provider and the named
// method is invoked with the merged arguments.
func (c *ControllerBuilder) Method(member, httpMethod, path, provider, methodName string) *RouteBuilder {
	b := &RouteBuilder{store: c.store, owner: c.owner, member: member}
	b.merge(&metadata.RouteDefinition{
		Method: httpMethod, Path: path,
		Body: metadata.Declarative{Provider: provider, Method: methodName},
	})

	return b
}

// MethodOf is Method with a statically known owner type, letting the
// compile phase verify the method exists before any request runs.
func (c *ControllerBuilder) MethodOf(member, httpMethod, path string, owner any, methodName string) *RouteBuilder {
	b := &RouteBuilder{store: c.store, owner: c.owner, member: member}
	b.merge(&metadata.RouteDefinition{
		Method: httpMethod, Path: path,
		Body: metadata.Declarative{Owner: reflect.TypeOf(owner), Method: methodName},
	})

	return b
}
