package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jask/contribsearch/internal/database/repository"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Search   SearchConfig   `mapstructure:"search"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConns       int    `mapstructure:"max_conns"`
}

type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// RedisConfig enables the shared person key directory when URL is set.
type RedisConfig struct {
	URL    string        `mapstructure:"url"`
	KeyTTL time.Duration `mapstructure:"key_ttl"`
}

type SearchConfig struct {
	DefaultLimit int         `mapstructure:"default_limit"`
	MaxLimit     int         `mapstructure:"max_limit"`
	Tiers        []string    `mapstructure:"tiers"`
	Fuzzy        FuzzyConfig `mapstructure:"fuzzy"`
}

type FuzzyConfig struct {
	SampleSize   int     `mapstructure:"sample_size"`
	Threshold    float64 `mapstructure:"threshold"`
	SamplePolicy string  `mapstructure:"sample_policy"`
	PrefixLen    int     `mapstructure:"prefix_len"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultPath is the config file used when neither a path nor
// CONTRIBSEARCH_CONFIG is given.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "contribsearch", "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "contribsearch", "contributions.db"))
	v.SetDefault("database.migrations_path", "internal/database/migrations")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.max_conns", 8)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key_ttl", 30*24*time.Hour)
	v.SetDefault("search.default_limit", 10)
	v.SetDefault("search.max_limit", 500)
	v.SetDefault("search.tiers", []string{"person_key", "normalized", "raw", "initials", "fuzzy"})
	v.SetDefault("search.fuzzy.sample_size", 5000)
	v.SetDefault("search.fuzzy.threshold", 0.8)
	v.SetDefault("search.fuzzy.sample_policy", string(repository.SampleBlock))
	v.SetDefault("search.fuzzy.prefix_len", 2)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from file and env. path wins over
// CONTRIBSEARCH_CONFIG; a missing file is not an error. Env var overrides use
// prefix CONTRIBSEARCH_, e.g. CONTRIBSEARCH_SEARCH_FUZZY_THRESHOLD.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path == "" {
		path = os.Getenv("CONTRIBSEARCH_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CONTRIBSEARCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for the sqlite store"))
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for the postgres store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of sqlite, postgres, memory", c.Store.Driver))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, errors.New("search.default_limit must be positive"))
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search.max_limit must be at least search.default_limit"))
	}
	f := c.Search.Fuzzy
	if f.SampleSize < 0 {
		errs = append(errs, errors.New("search.fuzzy.sample_size must not be negative"))
	}
	if f.Threshold < 0 || f.Threshold > 1 {
		errs = append(errs, errors.New("search.fuzzy.threshold must be within [0, 1]"))
	}
	if !repository.SamplePolicy(f.SamplePolicy).Valid() {
		errs = append(errs, fmt.Errorf("search.fuzzy.sample_policy %q is not one of head, block, random", f.SamplePolicy))
	}
	if f.PrefixLen < 0 {
		errs = append(errs, errors.New("search.fuzzy.prefix_len must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Save writes cfg to path, creating the config directory if needed.
// Secrets in postgres.url and redis.url are written in plain text; prefer env
// vars for those.
func Save(cfg Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("store.driver", cfg.Store.Driver)
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations_path", cfg.Database.MigrationsPath)
	v.Set("database.max_conns", cfg.Database.MaxConns)
	v.Set("postgres.url", cfg.Postgres.URL)
	v.Set("postgres.max_conns", cfg.Postgres.MaxConns)
	v.Set("redis.url", cfg.Redis.URL)
	v.Set("redis.key_ttl", cfg.Redis.KeyTTL.String())
	v.Set("search.default_limit", cfg.Search.DefaultLimit)
	v.Set("search.max_limit", cfg.Search.MaxLimit)
	v.Set("search.tiers", cfg.Search.Tiers)
	v.Set("search.fuzzy.sample_size", cfg.Search.Fuzzy.SampleSize)
	v.Set("search.fuzzy.threshold", cfg.Search.Fuzzy.Threshold)
	v.Set("search.fuzzy.sample_policy", cfg.Search.Fuzzy.SamplePolicy)
	v.Set("search.fuzzy.prefix_len", cfg.Search.Fuzzy.PrefixLen)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.shutdown_timeout", cfg.Server.ShutdownTimeout.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
