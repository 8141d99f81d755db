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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "armature.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, "armature:", cfg.Cache.KeyPrefix)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":9999"
log:
  level: debug
  format: text
cache:
  backend: redis
  redis_addr: "127.0.0.1:6379"
  default_ttl: 30s
auth:
  jwt_secret: "hush"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "hush", cfg.Auth.JWTSecret)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":9999"
cache:
  backend: memory
`)

	t.Setenv("ARMATURE_SERVER_ADDR", ":7777")
	t.Setenv("ARMATURE_CACHE_BACKEND", "disabled")
	t.Setenv("ARMATURE_CACHE_MAX_ENTRIES", "5000")
	t.Setenv("ARMATURE_CACHE_DEFAULT_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Addr)
	assert.Equal(t, "disabled", cfg.Cache.Backend)
	assert.Equal(t, 5000, cfg.Cache.MaxEntries)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, "cache:\n  backend: memcached\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "cache.backend")
}

func TestLoadRejectsRedisWithoutAddr(t *testing.T) {
	path := writeConfigFile(t, "cache:\n  backend: redis\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "redis_addr")
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := writeConfigFile(t, "log:\n  level: verbose\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "log.level")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, level)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
