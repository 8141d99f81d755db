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

// Package dispatch binds compiled routes to HTTP serving and runs the
// per-request algorithm: cache lookup, parameter extraction, dependency
// resolution, positional-argument merge, invocation, cache write-back and
// invalidation, and serialization, with one terminal error-handling exit.
package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/armature-dev/armature/cache"
	"github.com/armature-dev/armature/compiler"
	"github.com/armature-dev/armature/errors"
	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/request"
	"github.com/armature-dev/armature/resolve"
)

const tracerName = "armature/dispatch"

// Dispatcher serves compiled routes. Build one with New, install the
// route table exactly once with Install, then use it as an http.Handler.
// The table is read-only after Install, so serving requires no
// synchronization.
type Dispatcher struct {
	resolver     resolve.Resolver
	store        cache.Store
	serializer   Serializer
	errorHandler ErrorHandler
	logger       *slog.Logger
	global       []metadata.Middleware

	mu        sync.Mutex
	installed bool
	routes    []*compiler.CompiledRoute
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithResolver sets the dependency resolver.
func WithResolver(r resolve.Resolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithCache sets the result-cache store.
func WithCache(s cache.Store) Option {
	return func(d *Dispatcher) { d.store = s }
}

// WithSerializer replaces the default JSON serializer.
func WithSerializer(s Serializer) Option {
	return func(d *Dispatcher) { d.serializer = s }
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(d *Dispatcher) { d.errorHandler = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMiddleware appends middleware that runs before every route's own
// middleware chain, for cross-cutting collaborators like authentication.
func WithMiddleware(mw ...metadata.Middleware) Option {
	return func(d *Dispatcher) { d.global = append(d.global, mw...) }
}

// New creates a Dispatcher with JSON defaults: results serialize as JSON,
// failures format through errors.Simple, and uncached routes run against
// a disabled cache store.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		serializer: JSONSerializer{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.errorHandler == nil {
		d.errorHandler = NewErrorHandler(d.logger)
	}
	if d.store == nil {
		d.store, _ = cache.New(cache.Options{Backend: cache.BackendDisabled, Logger: d.logger})
	}

	return d
}

// Install compiles every stored route and binds the table. It runs at
// most once per Dispatcher; a repeated call is a logged no-op, never a
// reapplication. Compilation failures abort startup.
func (d *Dispatcher) Install(store *metadata.Store) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.installed {
		d.logger.Warn("route table already installed, ignoring repeated install")

		return nil
	}

	routes, err := compiler.CompileAll(store)
	if err != nil {
		return err
	}

	d.routes = routes
	d.installed = true
	d.logger.Info("route table installed", slog.Int("routes", len(routes)))

	return nil
}

// Routes returns the installed compiled routes, nil before Install.
func (d *Dispatcher) Routes() []*compiler.CompiledRoute {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.routes
}

// ServeHTTP matches the request against the route table in installation
// order and runs the per-request algorithm on the first match.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var allowed []string

	for _, route := range d.routes {
		params, ok := route.Matcher.Match(r.URL.Path)
		if !ok {
			continue
		}
		if route.Method != r.Method {
			allowed = append(allowed, route.Method)

			continue
		}

		d.dispatch(w, r, route, params)

		return
	}

	c := request.New(w, r, nil)
	if len(allowed) > 0 {
		sort.Strings(allowed)
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		d.errorHandler.HandleError(c, errors.WithStatus(nil, http.StatusMethodNotAllowed))

		return
	}
	d.errorHandler.HandleError(c, errors.WithStatus(nil, http.StatusNotFound))
}

// dispatch runs the per-request algorithm with a single response
// commitment point: either one serialization or one error-handler call.
func (d *Dispatcher) dispatch(w http.ResponseWriter, r *http.Request, route *compiler.CompiledRoute, params map[string]string) {
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "dispatch "+route.Identity(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", route.Method),
			attribute.String("http.route", route.FullPath),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	c := request.New(w, r, params)
	c.SetRoute(route)
	defer d.accessLog(c, route, start)
	defer d.recover(c, span)

	result, err := d.execute(c, route, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.errorHandler.HandleError(c, err)

		return
	}

	// Cached payloads were serialized when first stored and replay as-is.
	var serr error
	if cached, ok := result.(cachedResult); ok {
		serr = c.WriteRawJSON(http.StatusOK, cached.payload)
	} else {
		serr = d.serializer.Serialize(c, result)
	}
	if serr != nil {
		d.logger.Error("serialization failed",
			slog.String("route", route.Identity()),
			slog.String("correlation_id", c.CorrelationID()),
			slog.String("error", serr.Error()),
		)
	}
}

// cachedResult carries a cache hit through to serialization unchanged.
type cachedResult struct {
	payload []byte
}

// recover converts a handler panic into a formatted 500 response instead
// of letting it crash the server. The span records the escaped exception.
func (d *Dispatcher) recover(c *request.Context, span trace.Span) {
	rec := recover()
	if rec == nil {
		return
	}

	stack := make([]byte, 4<<10)
	stack = stack[:runtime.Stack(stack, false)]

	span.SetAttributes(
		attribute.Bool("exception.escaped", true),
		attribute.String("exception.type", fmt.Sprintf("%T", rec)),
		attribute.String("exception.message", fmt.Sprint(rec)),
	)
	span.SetStatus(codes.Error, "panic")

	d.logger.Error("panic recovered",
		slog.Any("panic", rec),
		slog.String("correlation_id", c.CorrelationID()),
		slog.String("stack", string(stack)),
	)

	err := fmt.Errorf("panic: %v", rec)
	d.errorHandler.HandleError(c, errors.WithStatus(err, http.StatusInternalServerError))
}

// accessLog emits one structured line per dispatched request.
func (d *Dispatcher) accessLog(c *request.Context, route *compiler.CompiledRoute, start time.Time) {
	attrs := []any{
		slog.String("http.method", route.Method),
		slog.String("http.route", route.FullPath),
		slog.String("http.target", c.Request.URL.Path),
		slog.Int("http.status_code", c.Status()),
		slog.Duration("duration", time.Since(start)),
		slog.String("correlation_id", c.CorrelationID()),
	}
	if cs := c.CacheStatus(); cs != "" {
		attrs = append(attrs, slog.String("cache", cs))
	}
	d.logger.Info("request", attrs...)
}

// execute performs steps 2 through 8: cache read, extraction,
// resolution, merge, invocation, cache write-back, and invalidation.
// Serialization and error handling stay with the caller.
func (d *Dispatcher) execute(c *request.Context, route *compiler.CompiledRoute, params map[string]string) (any, error) {
	rc := resolve.NewResolutionContext()

	for _, mw := range d.global {
		if err := mw(c); err != nil {
			return nil, err
		}
	}
	for _, mw := range route.Middleware {
		if err := mw(c); err != nil {
			return nil, err
		}
	}

	var key string
	if route.Def.Cache != nil {
		key = cacheKey(c, route, params)

		if payload, err := d.store.Get(c.Context(), key); err == nil {
			c.SetCacheStatus("hit")
			d.logger.Debug("cache hit",
				slog.String("route", route.Identity()),
				slog.String("key", key),
			)

			return cachedResult{payload: payload}, nil
		}
		c.SetCacheStatus("miss")
	}

	args, err := d.buildArgs(c, route, rc)
	if err != nil {
		return nil, err
	}

	result, err := d.invoke(c, route.Identity(), route.Def.Body, rc, args)
	if err != nil {
		return nil, err
	}

	if route.Def.Cache != nil && accepts(route.Def.Cache, result) {
		if payload, merr := json.Marshal(result); merr == nil {
			if serr := d.store.Set(c.Context(), key, payload, route.Def.Cache.TTL); serr != nil {
				d.logger.Warn("cache write failed",
					slog.String("route", route.Identity()),
					slog.String("key", key),
					slog.String("error", serr.Error()),
				)
			}
		}
	}

	// Invalidation runs unconditionally once execution reaches this
	// point, even on routes that also read from the same cache.
	for _, pattern := range route.Def.Invalidate {
		substituted := cache.Substitute(pattern, params)
		if err := d.store.DeletePattern(c.Context(), substituted); err != nil {
			d.logger.Warn("cache invalidation failed",
				slog.String("route", route.Identity()),
				slog.String("pattern", substituted),
				slog.String("error", err.Error()),
			)
		}
	}

	return result, nil
}

// buildArgs performs extraction, resolution, and the dense merge.
// Parameter slots and dependency slots stay sparse until the merge;
// indices nobody declared stay nil in the final array.
func (d *Dispatcher) buildArgs(c *request.Context, route *compiler.CompiledRoute, rc *resolve.ResolutionContext) ([]any, error) {
	identity := route.Identity()

	paramSlots := make(map[int]any, len(route.ParamIndices))
	for _, idx := range route.ParamIndices {
		value, err := extract(c, identity, route.Def.Params[idx])
		if err != nil {
			return nil, err
		}
		paramSlots[idx] = value
	}

	depSlots := make(map[int]any, len(route.DepIndices))
	for _, idx := range route.DepIndices {
		dep := route.Def.Dependencies[idx]
		if d.resolver == nil {
			return nil, &resolve.DependencyError{
				Route:    identity,
				Index:    idx,
				Provider: dep.Provider,
				Err:      resolve.ErrUnknownProvider,
			}
		}
		instance, err := d.resolver.Resolve(c.Context(), dep.Provider, dep.Scope, rc)
		if err != nil {
			return nil, &resolve.DependencyError{
				Route:    identity,
				Index:    idx,
				Provider: dep.Provider,
				Err:      err,
			}
		}
		depSlots[idx] = instance
	}

	args := make([]any, route.MaxArgIndex+1)
	for i := range args {
		if v, ok := paramSlots[i]; ok {
			args[i] = v

			continue
		}
		if v, ok := depSlots[i]; ok {
			args[i] = v
		}
	}

	return args, nil
}

// cacheKey derives the cache key for one request: the directive's
// explicit template with placeholders substituted, or the deterministic
// derived key.
func cacheKey(c *request.Context, route *compiler.CompiledRoute, params map[string]string) string {
	directive := route.Def.Cache
	if directive.KeyTemplate != "" {
		return cache.Substitute(directive.KeyTemplate, params)
	}

	in := cache.KeyInput{
		Method:       route.Method,
		PathTemplate: route.FullPath,
		PathParams:   params,
		IncludeQuery: directive.IncludeQuery,
		VaryHeaders:  directive.VaryHeaders,
		Header:       c.Header,
	}
	if directive.IncludeQuery {
		in.Query = c.QueryMap()
	}

	return cache.BuildKey(in)
}

func accepts(directive *metadata.CacheDirective, result any) bool {
	if result == nil {
		return false
	}
	// A Renderer writes its own response; its JSON form would not replay
	// faithfully, so it never enters the cache.
	if _, ok := result.(Renderer); ok {
		return false
	}
	if directive.Accept == nil {
		return true
	}

	return directive.Accept(result)
}
