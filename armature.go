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

// Package armature is a route compilation and dispatch framework. Routes
// are declared through explicit builder calls, accumulated in a
// per-application metadata store, frozen into compiled routes in one
// startup compile phase, and served with parameter extraction, schema
// validation, scoped dependency resolution, result caching, and a single
// error-handling exit.
//
// Minimal use:
//
//	app, err := armature.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	app.GET("items.list", "/items", func(c *request.Context, args ...any) (any, error) {
//		return []string{"a", "b"}, nil
//	})
//	if err := app.Compile(); err != nil {
//		log.Fatal(err)
//	}
//	app.Start(context.Background())
package armature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/armature-dev/armature/auth"
	"github.com/armature-dev/armature/cache"
	"github.com/armature-dev/armature/compiler"
	"github.com/armature-dev/armature/config"
	"github.com/armature-dev/armature/dispatch"
	"github.com/armature-dev/armature/metadata"
	"github.com/armature-dev/armature/resolve"
)

// Application owns one metadata store, one dependency container, one
// cache store, and one dispatcher. Nothing is process-global: two
// Applications in one process are fully independent.
type Application struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *metadata.Store
	container *resolve.Container
	cache     cache.Store
	dsp       *dispatch.Dispatcher
	server    *http.Server
}

// Option configures an Application.
type Option func(*options)

type options struct {
	cfg          *config.Config
	cfgPath      string
	logger       *slog.Logger
	cacheStore   cache.Store
	serializer   dispatch.Serializer
	errorHandler dispatch.ErrorHandler
	middleware   []metadata.Middleware
}

// WithConfig supplies a prebuilt configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads configuration from a YAML file during New.
func WithConfigFile(path string) Option {
	return func(o *options) { o.cfgPath = path }
}

// WithLogger replaces the configured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCacheStore replaces the config-built cache store.
func WithCacheStore(s cache.Store) Option {
	return func(o *options) { o.cacheStore = s }
}

// WithSerializer replaces the default JSON response serializer.
func WithSerializer(s dispatch.Serializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h dispatch.ErrorHandler) Option {
	return func(o *options) { o.errorHandler = h }
}

// WithMiddleware appends application-wide middleware, run before every
// route's own chain.
func WithMiddleware(mw ...metadata.Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

// New builds an Application. Configuration precedence: WithConfig, then
// WithConfigFile, then defaults plus environment overrides. A configured
// JWT secret wires the bearer-auth collaborator automatically.
func New(opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load(o.cfgPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := o.logger
	if logger == nil {
		logger = newLogger(cfg.Log)
	}

	store := o.cacheStore
	if store == nil {
		built, err := cache.New(cache.Options{
			Backend:       cfg.Cache.Backend,
			MaxEntries:    cfg.Cache.MaxEntries,
			DefaultTTL:    cfg.Cache.DefaultTTL,
			RedisAddr:     cfg.Cache.RedisAddr,
			RedisPassword: cfg.Cache.RedisPassword,
			RedisDB:       cfg.Cache.RedisDB,
			KeyPrefix:     cfg.Cache.KeyPrefix,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build cache store: %w", err)
		}
		store = built
	}

	middleware := o.middleware
	if cfg.Auth.JWTSecret != "" {
		middleware = append([]metadata.Middleware{auth.Bearer([]byte(cfg.Auth.JWTSecret))}, middleware...)
	}

	container := resolve.NewContainer()
	dispatchOpts := []dispatch.Option{
		dispatch.WithResolver(container),
		dispatch.WithCache(store),
		dispatch.WithLogger(logger),
		dispatch.WithMiddleware(middleware...),
	}
	if o.serializer != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithSerializer(o.serializer))
	}
	if o.errorHandler != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithErrorHandler(o.errorHandler))
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		store:     metadata.NewStore(),
		container: container,
		cache:     store,
		dsp:       dispatch.New(dispatchOpts...),
	}, nil
}

// MustNew is New, panicking on error. For main functions and tests.
func MustNew(opts ...Option) *Application {
	app, err := New(opts...)
	if err != nil {
		panic(err)
	}

	return app
}

// Store exposes the metadata store for registration tooling.
func (a *Application) Store() *metadata.Store {
	return a.store
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Provide registers a dependency factory under a provider name.
func (a *Application) Provide(name string, scope resolve.Scope, factory resolve.Factory) error {
	return a.container.Register(name, scope, factory)
}

// ProvideValue registers an existing value as a singleton provider.
func (a *Application) ProvideValue(name string, value any) error {
	return a.container.RegisterValue(name, value)
}

// Route starts a functional route declaration. The identity key is
// "owner.member"; a bare member gets the owner "func". Every builder
// call merges into the store, so a route may also be assembled across
// several Route calls with the same key.
func (a *Application) Route(key, method, path string, handler metadata.HandlerFunc) *RouteBuilder {
	owner, member := splitKey(key)
	b := &RouteBuilder{store: a.store, owner: owner, member: member}

	def := &metadata.RouteDefinition{Method: method, Path: path}
	// A nil handler means this call only amends an existing declaration;
	// registering a second body for the key would be a startup error.
	if handler != nil {
		def.Body = metadata.Functional{Handler: handler}
	}
	b.merge(def)

	return b
}

// GET declares a functional GET route.
func (a *Application) GET(key, path string, handler metadata.HandlerFunc) *RouteBuilder {
	return a.Route(key, http.MethodGet, path, handler)
}

// POST declares a functional POST route.
func (a *Application) POST(key, path string, handler metadata.HandlerFunc) *RouteBuilder {
	return a.Route(key, http.MethodPost, path, handler)
}

// PUT declares a functional PUT route.
func (a *Application) PUT(key, path string, handler metadata.HandlerFunc) *RouteBuilder {
	return a.Route(key, http.MethodPut, path, handler)
}

// DELETE declares a functional DELETE route.
func (a *Application) DELETE(key, path string, handler metadata.HandlerFunc) *RouteBuilder {
	return a.Route(key, http.MethodDelete, path, handler)
}

// Controller starts a controller declaration: a path prefix plus
// middleware shared by every route whose owner matches name, with
// declarative method routes registered through the returned builder.
func (a *Application) Controller(name, prefix string, middleware ...metadata.Middleware) *ControllerBuilder {
	a.store.RegisterController(name, prefix, middleware...)

	return &ControllerBuilder{store: a.store, owner: name}
}

// Compile freezes all declared routes and installs them on the
// dispatcher. It runs at most once; repeated calls are logged no-ops.
// Compilation failures mean a programmer error and abort startup.
func (a *Application) Compile() error {
	return a.dsp.Install(a.store)
}

// Handler returns the Application as an http.Handler. Compile must have
// run first.
func (a *Application) Handler() http.Handler {
	return a.dsp
}

// Routes returns the compiled route table, nil before Compile.
func (a *Application) Routes() []*compiler.CompiledRoute {
	return a.dsp.Routes()
}

// Start compiles (when not yet compiled), binds the configured address,
// and serves until ctx is canceled or the listener fails. On
// cancellation it drains connections within the shutdown timeout.
func (a *Application) Start(ctx context.Context) error {
	if err := a.Compile(); err != nil {
		return err
	}

	a.server = &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.dsp,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", slog.String("addr", a.cfg.Server.Addr))
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return a.Shutdown()
	}
}

// Shutdown drains the server and closes the cache store.
func (a *Application) Shutdown() error {
	var errs []error

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if err := a.cache.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func splitKey(key string) (owner, member string) {
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		return key[:i], key[i+1:]
	}

	return "func", key
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
