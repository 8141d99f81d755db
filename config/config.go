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

// Package config loads application configuration from YAML with
// environment-variable overrides. Precedence, lowest to highest:
// defaults, file, ARMATURE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Cache  CacheConfig  `yaml:"cache"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// CacheConfig configures the result-cache collaborator.
type CacheConfig struct {
	// Backend is memory, redis, or disabled.
	Backend string `yaml:"backend"`

	MaxEntries int           `yaml:"max_entries"`
	DefaultTTL time.Duration `yaml:"default_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// AuthConfig configures the bearer-JWT collaborator.
type AuthConfig struct {
	// JWTSecret is the HS256 signing secret. Empty disables the
	// middleware.
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			KeyPrefix: "armature:",
		},
	}
}

// Load builds the configuration from an optional YAML file and the
// environment. An empty path skips the file stage.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the framework cannot start with.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis", "disabled", "":
	default:
		return fmt.Errorf("cache.backend %q is not one of memory, redis, disabled", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache.backend redis requires cache.redis_addr")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", name)
	}
}

// applyEnv overlays ARMATURE_* environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "ARMATURE_SERVER_ADDR")
	setString(&cfg.Log.Level, "ARMATURE_LOG_LEVEL")
	setString(&cfg.Log.Format, "ARMATURE_LOG_FORMAT")
	setString(&cfg.Cache.Backend, "ARMATURE_CACHE_BACKEND")
	setString(&cfg.Cache.RedisAddr, "ARMATURE_CACHE_REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "ARMATURE_CACHE_REDIS_PASSWORD")
	setString(&cfg.Cache.KeyPrefix, "ARMATURE_CACHE_KEY_PREFIX")
	setString(&cfg.Auth.JWTSecret, "ARMATURE_AUTH_JWT_SECRET")
	setInt(&cfg.Cache.MaxEntries, "ARMATURE_CACHE_MAX_ENTRIES")
	setInt(&cfg.Cache.RedisDB, "ARMATURE_CACHE_REDIS_DB")
	setDuration(&cfg.Cache.DefaultTTL, "ARMATURE_CACHE_DEFAULT_TTL")
	setDuration(&cfg.Server.ShutdownTimeout, "ARMATURE_SERVER_SHUTDOWN_TIMEOUT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
