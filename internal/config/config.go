// Package config loads weave settings from defaults, an optional YAML file,
// an optional .env file and WEAVE_ environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WEAVE_"

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "weave.yaml"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	Agent     AgentConfig     `koanf:"agent"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Input     InputConfig     `koanf:"input"`
}

type ServerConfig struct {
	Port       int  `koanf:"port"`
	Production bool `koanf:"production"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type StoreConfig struct {
	Driver   string         `koanf:"driver"` // memory, redis, sqlite, postgres
	Redis    RedisConfig    `koanf:"redis"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type PostgresConfig struct {
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

type AgentConfig struct {
	// URL of the remote agent. When both URL and Command are empty the
	// built-in echo agent is used.
	URL string `koanf:"url"`
	// Command is a YAML file describing a local agent executable.
	Command string        `koanf:"command"`
	Timeout time.Duration `koanf:"timeout"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type InputConfig struct {
	MaxSize int `koanf:"max_size"`
}

var defaults = map[string]any{
	"server.port":              8080,
	"server.production":        false,
	"log.level":                "info",
	"log.format":               "text",
	"store.driver":             DriverMemory,
	"store.redis.addr":         "localhost:6379",
	"store.redis.password":     "",
	"store.redis.db":           0,
	"store.redis.prefix":       "weave:",
	"store.redis.ttl":          "0s",
	"store.sqlite.path":        "weave.db",
	"store.postgres.url":       "",
	"store.postgres.max_conns": 10,
	"agent.url":                "",
	"agent.command":            "",
	"agent.timeout":            "2m",
	"telemetry.enabled":        false,
	"metrics.enabled":          true,
	"input.max_size":           16 * 1024,
}

// Load reads the configuration. An empty path falls back to DefaultFile
// when it exists. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config: default %s: %w", key, err)
		}
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// WEAVE_STORE_REDIS_ADDR -> store.redis.addr
	// WEAVE_INPUT_MAX_SIZE   -> input.max_size
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeys maps the flattened form of every known key back to the key, so
// keys containing underscores survive the env transform.
var envKeys = func() map[string]string {
	m := make(map[string]string, len(defaults))
	for key := range defaults {
		m[strings.ReplaceAll(key, ".", "_")] = key
	}
	return m
}()

func envKey(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if key, ok := envKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "_", ".")
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverRedis, DriverSQLite:
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			return errors.New("config: store.postgres.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	if c.Agent.URL != "" && c.Agent.Command != "" {
		return errors.New("config: agent.url and agent.command are mutually exclusive")
	}
	if c.Input.MaxSize <= 0 {
		return fmt.Errorf("config: input.max_size must be positive")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
