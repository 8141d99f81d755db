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
	"container/list"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxEntries = 10000
	janitorInterval   = time.Minute
)

// memoryStore is an in-process LRU store with TTL expiry. Expired entries
// are dropped lazily on Get and swept periodically by a janitor
// goroutine.
type memoryStore struct {
	logger     *slog.Logger
	maxEntries int
	defaultTTL time.Duration

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	hits   int64
	misses int64

	// now is swapped in tests to step through TTL windows.
	now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	s := &memoryStore{
		logger:     opts.Logger,
		maxEntries: maxEntries,
		defaultTTL: opts.DefaultTTL,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
	go s.janitor()

	s.logger.Debug("memory cache initialized",
		slog.Int("max_entries", maxEntries),
		slog.Duration("default_ttl", s.defaultTTL))

	return s
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendMemory),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics().operationDuration.WithLabelValues(BackendMemory, "get").
			Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		metrics().missesTotal.WithLabelValues(BackendMemory).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))

		return nil, ErrMiss
	}

	entry := elem.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.removeElement(elem)
		atomic.AddInt64(&s.misses, 1)
		metrics().missesTotal.WithLabelValues(BackendMemory).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))

		return nil, ErrMiss
	}

	s.eviction.MoveToFront(elem)
	atomic.AddInt64(&s.hits, 1)
	metrics().hitsTotal.WithLabelValues(BackendMemory).Inc()
	span.SetAttributes(attribute.Bool("cache.hit", true))

	// Copy so callers can't mutate the cached bytes.
	out := make([]byte, len(entry.value))
	copy(out, entry.value)

	return out, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "cache.Set",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", BackendMemory),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	if ttl == 0 {
		ttl = s.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = stored
		entry.expiresAt = expiresAt
		s.eviction.MoveToFront(elem)

		return nil
	}

	elem := s.eviction.PushFront(&memoryEntry{key: key, value: stored, expiresAt: expiresAt})
	s.items[key] = elem

	for len(s.items) > s.maxEntries {
		oldest := s.eviction.Back()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		metrics().evictionsTotal.WithLabelValues(BackendMemory).Inc()
	}
	metrics().sizeGauge.WithLabelValues(BackendMemory).Set(float64(len(s.items)))

	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		s.removeElement(elem)
	}

	return nil
}

func (s *memoryStore) DeletePattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, elem := range s.items {
		if globMatch(pattern, key) {
			s.removeElement(elem)
		}
	}

	return nil
}

func (s *memoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })

	return nil
}

func (s *memoryStore) Stats() Stats {
	s.mu.Lock()
	size := int64(len(s.items))
	s.mu.Unlock()

	return Stats{
		Hits:   atomic.LoadInt64(&s.hits),
		Misses: atomic.LoadInt64(&s.misses),
		Size:   size,
	}
}

// removeElement must be called with s.mu held.
func (s *memoryStore) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	s.eviction.Remove(elem)
	delete(s.items, entry.key)
	metrics().sizeGauge.WithLabelValues(BackendMemory).Set(float64(len(s.items)))
}

func (s *memoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *memoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, elem := range s.items {
		entry := elem.Value.(*memoryEntry)
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			s.removeElement(elem)
		}
	}
}

// globMatch matches `*` across separator characters, unlike path.Match.
// Patterns without `*` must match exactly.
func globMatch(pattern, key string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == key
	}

	segments := strings.Split(pattern, "*")
	if !strings.HasPrefix(key, segments[0]) {
		return false
	}
	key = key[len(segments[0]):]

	for i := 1; i < len(segments)-1; i++ {
		idx := strings.Index(key, segments[i])
		if idx < 0 {
			return false
		}
		key = key[idx+len(segments[i]):]
	}

	return strings.HasSuffix(key, segments[len(segments)-1])
}
