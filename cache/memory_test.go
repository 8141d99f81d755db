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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) *memoryStore {
	t.Helper()
	s := newMemoryStore(opts.withTestDefaults())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func (o Options) withTestDefaults() Options {
	if o.Logger == nil {
		o.Logger = nopLogger()
	}

	return o
}

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	_, err := s.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestMemoryTTLWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	base := time.Now()
	now := base
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 5*time.Second))

	now = base.Add(1 * time.Second)
	got, err := s.Get(ctx, "k")
	require.NoError(t, err, "entry must be retrievable inside its TTL")
	assert.Equal(t, []byte("v"), got)

	now = base.Add(6 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss, "entry must be absent after its TTL")
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	base := time.Now()
	now := base
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	now = base.Add(24 * time.Hour)
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryLRUEviction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{MaxEntries: 2})

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	// Touch "a" so "b" is the eviction candidate.
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "c", []byte("3"), 0))

	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryDeletePattern(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	for _, key := range []string{"items:1", "items:2", "users:1"} {
		require.NoError(t, s.Set(ctx, key, []byte("x"), 0))
	}

	require.NoError(t, s.DeletePattern(ctx, "items:*"))

	_, err := s.Get(ctx, "items:1")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "items:2")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "users:1")
	assert.NoError(t, err)
}

func TestMemoryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	require.NoError(t, s.Set(ctx, "k", []byte("abc"), 0))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'X'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{})

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	_, _ = s.Get(ctx, "k")
	_, _ = s.Get(ctx, "absent")

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
	assert.InDelta(t, 50.0, stats.HitRate(), 0.01)
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, key string
		want         bool
	}{
		{"items:*", "items:1", true},
		{"items:*", "users:1", false},
		{"items:1", "items:1", true},
		{"items:1", "items:12", false},
		{"*:1", "items:1", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXc", false},
		{"*", "anything", true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, globMatch(tc.pattern, tc.key), "%s vs %s", tc.pattern, tc.key)
	}
}

func TestDisabledBackend(t *testing.T) {
	ctx := context.Background()
	s, err := New(Options{Backend: BackendDisabled, Logger: nopLogger()})
	require.NoError(t, err)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, s.Set(ctx, "k", []byte("v"), time.Second))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss, "writes must be dropped")
	assert.NoError(t, s.DeletePattern(ctx, "*"))
	assert.NoError(t, s.Close())
}

func TestUnknownBackendRejected(t *testing.T) {
	_, err := New(Options{Backend: "memcached"})
	assert.Error(t, err)
}
