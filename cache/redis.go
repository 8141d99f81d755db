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

package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// deletePatternScanCount is the SCAN batch size used by DeletePattern.
const deletePatternScanCount = 256

// redisStore is a Redis-backed Store. All keys carry the configured
// prefix so one Redis instance can serve several applications.
type redisStore struct {
	logger     *slog.Logger
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration

	hits   int64
	misses int64
}

func newRedisStore(opts Options) (*redisStore, error) {
	if opts.RedisAddr == "" {
		return nil, ErrInvalidConfig
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, err
	}

	s := &redisStore{
		logger:     opts.Logger,
		client:     client,
		keyPrefix:  opts.KeyPrefix,
		defaultTTL: opts.DefaultTTL,
	}

	s.logger.Debug("redis cache initialized",
		slog.String("addr", opts.RedisAddr),
		slog.Int("db", opts.RedisDB),
		slog.String("key_prefix", opts.KeyPrefix))

	return s, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics().operationDuration.WithLabelValues(BackendRedis, "get").
			Observe(time.Since(start).Seconds())
	}()

	value, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&s.misses, 1)
		metrics().missesTotal.WithLabelValues(BackendRedis).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))

		return nil, ErrMiss
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	atomic.AddInt64(&s.hits, 1)
	metrics().hitsTotal.WithLabelValues(BackendRedis).Inc()
	span.SetAttributes(attribute.Bool("cache.hit", true))

	return value, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Set",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	if ttl == 0 {
		ttl = s.defaultTTL
	}

	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+key).Err()
}

// DeletePattern removes matching keys with a cursor-based SCAN so large
// keyspaces are never blocked by a KEYS call.
func (s *redisStore) DeletePattern(ctx context.Context, pattern string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.DeletePattern",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendRedis),
			attribute.String("cache.pattern", pattern),
		),
	)
	defer span.End()

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+pattern, deletePatternScanCount).Result()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return err
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())

				return err
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	span.SetAttributes(attribute.Int("cache.deleted", deleted))

	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func (s *redisStore) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&s.hits),
		Misses: atomic.LoadInt64(&s.misses),
	}
}
