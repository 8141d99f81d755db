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

// Package metadata holds route, controller, parameter, and dependency
// declarations collected during application startup. Declarations are
// produced by explicit builder calls, accumulate through merge-on-write
// store semantics, and are frozen into compiled routes exactly once by the
// compiler package.
package metadata

import (
	"reflect"
	"time"

	"github.com/armature-dev/armature/request"
	"github.com/armature-dev/armature/resolve"
	"github.com/armature-dev/armature/validation"
)

// Source identifies where a declared parameter's value comes from.
type Source string

// Parameter source kinds.
const (
	SourceBody            Source = "body"            // parsed request payload
	SourceQuery           Source = "query"           // named query value
	SourceQueryMap        Source = "queryMap"        // full query map
	SourcePathParam       Source = "pathParam"       // named captured path segment
	SourcePathParamMap    Source = "pathParamMap"    // full capture map
	SourceHeader          Source = "header"          // named request header
	SourceHeaderMap       Source = "headerMap"       // full header map
	SourceCookie          Source = "cookie"          // named cookie
	SourceCookieMap       Source = "cookieMap"       // full cookie map
	SourceRequest         Source = "request"         // underlying *http.Request
	SourceContext         Source = "context"         // the request.Context itself
	SourcePrincipal       Source = "principal"       // authenticated principal slot
	SourceCredential      Source = "credential"      // raw credential slot
	SourceIdentityUser    Source = "identityUser"    // identity-provider user slot
	SourceIdentityToken   Source = "identityToken"   // identity-provider token slot
	SourceSession         Source = "session"         // active session handle
	SourceSessionDatum    Source = "sessionDatum"    // named session-scoped datum
	SourceAntiForgery     Source = "antiForgery"     // anti-forgery token slot
	SourceAuthzResource   Source = "authzResource"   // authorization-filtered resource
	SourceAuthzAttributes Source = "authzAttributes" // authorization-filtered attributes
	SourceCorrelationID   Source = "correlationID"   // request correlation id
	SourceCancellation    Source = "cancellation"    // cancellation signal (context.Context)
)

// HandlerFunc is the signature of functional route handlers: the request
// context followed by the merged positional arguments. The returned value
// is handed to the response serializer; nil maps to 204 No Content.
type HandlerFunc func(c *request.Context, args ...any) (any, error)

// Middleware runs before the per-request dispatch algorithm. Controller
// middleware is prepended to route middleware at compile time. An error
// funnels to the error handler like any other dispatch failure.
type Middleware func(c *request.Context) error

// Body is the tagged variant identifying how a route executes: a
// registered function, or a named method on an owning type. Dispatchers
// match it exhaustively; an unknown implementation is a compile-time
// misconfiguration.
type Body interface {
	isBody()
}

// Functional executes a registered handler function.
type Functional struct {
	Handler HandlerFunc
}

func (Functional) isBody() {}

// Declarative builds a transient instance of the owning type and invokes
// the named method on it with the merged arguments only; a handler that
// needs the request context must declare a context parameter.
type Declarative struct {
	// Owner is the controller type. Instances are built through the
	// dependency resolver under Provider when registered, or by
	// reflect.New as a fallback.
	Owner reflect.Type

	// Provider is the resolver identifier for constructing the owner.
	Provider string

	// Method is the exported method name invoked per request.
	Method string
}

func (Declarative) isBody() {}

// ParameterDefinition declares one positional handler parameter.
type ParameterDefinition struct {
	Index    int               // positional index in the merged argument array
	Source   Source            // extraction rule
	Name     string            // key for named kinds (query, header, cookie, pathParam, sessionDatum)
	Schema   validation.Schema // optional validation schema, nil to skip
	Required bool              // reject the request when the value is absent
}

// DependencyDefinition declares one positional resolver-provided argument.
type DependencyDefinition struct {
	Index    int
	Provider string
	Scope    resolve.Scope
}

// CacheDirective requests result caching for a route.
type CacheDirective struct {
	// TTL is the cache entry lifetime.
	TTL time.Duration

	// KeyTemplate, when set, overrides derived keys. `{name}` and `:name`
	// placeholders are substituted with path-parameter values.
	KeyTemplate string

	// IncludeQuery folds the sorted query map into the derived key.
	IncludeQuery bool

	// VaryHeaders appends the named header values to the derived key.
	VaryHeaders []string

	// Accept, when set, must approve a result before it is written back.
	Accept func(value any) bool
}

// RouteDefinition is one declared route. Parameter and dependency slots
// are index-addressed and may contain gaps; unset indices simply have no
// map entry.
type RouteDefinition struct {
	Owner  string // owning-type name, or "func" for functional routes
	Member string // member name within the owner

	Method string // HTTP method
	Path   string // path template with {name} or :name placeholders

	Middleware   []Middleware
	Params       map[int]ParameterDefinition
	Dependencies map[int]DependencyDefinition

	Docs          string
	Cache         *CacheDirective
	Invalidate    []string // invalidation patterns, placeholders substituted per request
	Body          Body
	AuthMandatory bool
}

// Key returns the identity key, unique per application instance.
func (d *RouteDefinition) Key() string {
	return d.Owner + "." + d.Member
}

// ParamAt sets a parameter declaration, allocating the sparse map on first
// use. It returns the definition for chaining during registration.
func (d *RouteDefinition) ParamAt(p ParameterDefinition) *RouteDefinition {
	if d.Params == nil {
		d.Params = make(map[int]ParameterDefinition)
	}
	d.Params[p.Index] = p

	return d
}

// DependencyAt sets a dependency declaration, allocating the sparse map on
// first use. It returns the definition for chaining during registration.
func (d *RouteDefinition) DependencyAt(dep DependencyDefinition) *RouteDefinition {
	if d.Dependencies == nil {
		d.Dependencies = make(map[int]DependencyDefinition)
	}
	d.Dependencies[dep.Index] = dep

	return d
}
