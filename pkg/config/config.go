// Package config loads the fourbar server configuration.
//
// Configuration comes from a TOML file, then environment variables, then
// command-line flags (applied by the caller). Every field has a default, so
// an empty file or no file at all yields a working single-process setup:
// an in-memory store, no shared cache and the HTTP server on :8080.
//
//	[server]
//	addr = ":8080"
//	allowed_origins = ["https://fourbar.gg"]
//
//	[store]
//	driver = "postgres"
//	dsn = "postgres://fourbar@localhost/fourbar?sslmode=disable"
//
//	[cache]
//	driver = "redis"
//	redis_addr = "localhost:6379"
//
//	[editor]
//	session_ttl = "2h"
//
// Environment overrides use the FOURBAR_ prefix, e.g. FOURBAR_STORE_DSN.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fourbar/fourbar/pkg/errors"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Cache drivers.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Editor EditorConfig `toml:"editor"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

// StoreConfig selects the layout store.
type StoreConfig struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"` // mongo only
}

// CacheConfig selects the shared cache.
type CacheConfig struct {
	Driver        string `toml:"driver"`
	Dir           string `toml:"dir"` // file only
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
}

// EditorConfig configures edit sessions.
type EditorConfig struct {
	SessionTTL      Duration `toml:"session_ttl"`
	CleanupInterval Duration `toml:"cleanup_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as a string ("10m", "2h") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Store: StoreConfig{
			Driver:   StoreMemory,
			Database: "fourbar",
		},
		Cache: CacheConfig{
			Driver: CacheNone,
		},
		Editor: EditorConfig{
			SessionTTL:      Duration{2 * time.Hour},
			CleanupInterval: Duration{5 * time.Minute},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, errors.New(errors.ErrCodeInvalidInput, "config %s: unknown key %s", path, undecoded[0])
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults. Environment variables are not
// consulted.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from FOURBAR_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"FOURBAR_ADDR", &c.Server.Addr},
		{"FOURBAR_STORE_DRIVER", &c.Store.Driver},
		{"FOURBAR_STORE_DSN", &c.Store.DSN},
		{"FOURBAR_STORE_DATABASE", &c.Store.Database},
		{"FOURBAR_CACHE_DRIVER", &c.Cache.Driver},
		{"FOURBAR_CACHE_DIR", &c.Cache.Dir},
		{"FOURBAR_REDIS_ADDR", &c.Cache.RedisAddr},
		{"FOURBAR_REDIS_PASSWORD", &c.Cache.RedisPassword},
		{"FOURBAR_CACHE_PREFIX", &c.Cache.Prefix},
		{"FOURBAR_LOG_LEVEL", &c.Log.Level},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup("FOURBAR_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "FOURBAR_REDIS_DB")
		}
		c.Cache.RedisDB = n
	}
	if v, ok := lookup("FOURBAR_SESSION_TTL"); ok {
		if err := c.Editor.SessionTTL.UnmarshalText([]byte(v)); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "FOURBAR_SESSION_TTL")
		}
	}
	return nil
}

// Validate checks that the selected drivers have what they need.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "server.addr is required")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres, StoreMongo:
		if c.Store.DSN == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store.dsn is required for the %s driver", c.Store.Driver)
		}
		if c.Store.Driver == StoreMongo && c.Store.Database == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store.database is required for the mongo driver")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown store driver %q", c.Store.Driver)
	}

	switch c.Cache.Driver {
	case CacheNone, CacheFile:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis driver")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache driver %q", c.Cache.Driver)
	}

	if c.Editor.SessionTTL.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "editor.session_ttl must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown log level %q", c.Log.Level)
	}
	return nil
}

// String returns the configuration as TOML with secrets masked.
func (c Config) String() string {
	if c.Store.DSN != "" {
		c.Store.DSN = "****"
	}
	if c.Cache.RedisPassword != "" {
		c.Cache.RedisPassword = "****"
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return err.Error()
	}
	return b.String()
}
