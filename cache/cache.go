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

// Package cache provides the result-cache collaborator used by the
// dispatcher: a byte-oriented store with TTL expiry and pattern-based
// invalidation, backed by an in-process LRU or Redis.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Common cache errors.
var (
	// ErrMiss indicates that the key was not found in the cache.
	ErrMiss = errors.New("cache miss")

	// ErrDisabled indicates that caching is disabled.
	ErrDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)

// Store is the dispatcher's cache collaborator. Implementations must be
// safe for concurrent use; the dispatcher shares one Store across all
// in-flight requests without serializing access.
type Store interface {
	// Get retrieves a value. Returns ErrMiss when the key is absent or
	// expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A TTL of 0 means the entry
	// never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a single key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob pattern, where `*`
	// matches any run of characters including separators.
	DeletePattern(ctx context.Context, pattern string) error

	// Close releases backend resources.
	Close() error
}

// Stats reports hit and miss counters for stores that track them.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// HitRate returns the hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total) * 100
}

// StatsProvider is implemented by stores that track Stats.
type StatsProvider interface {
	Stats() Stats
}

// Backend names accepted by New.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDisabled = "disabled"
)

// Options configures the store built by New.
type Options struct {
	// Backend selects the implementation: memory (default), redis, or
	// disabled.
	Backend string

	// MaxEntries bounds the memory backend. Zero means 10000.
	MaxEntries int

	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// RedisAddr, RedisPassword, RedisDB, and KeyPrefix configure the
	// redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	// Logger receives lifecycle events. Nil means slog.Default().
	Logger *slog.Logger
}

// New builds a Store for the configured backend.
func New(opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch opts.Backend {
	case BackendMemory, "":
		return newMemoryStore(opts), nil
	case BackendRedis:
		return newRedisStore(opts)
	case BackendDisabled:
		return disabledStore{}, nil
	default:
		return nil, errors.New("unknown cache backend: " + opts.Backend)
	}
}

// disabledStore reports every read as a miss and drops every write, so
// the dispatcher needs no nil checks around an absent cache.
type disabledStore struct{}

func (disabledStore) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (disabledStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (disabledStore) Delete(context.Context, string) error { return nil }

func (disabledStore) DeletePattern(context.Context, string) error { return nil }

func (disabledStore) Close() error { return nil }
