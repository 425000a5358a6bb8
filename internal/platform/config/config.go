// Package config loads process configuration: defaults, then an optional
// YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     logger.Config `yaml:"log"`
	Cache   CacheConfig   `yaml:"cache"`
	Search  SearchConfig  `yaml:"search"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

type ServerConfig struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	// Timezone is the IANA zone the console's calendar follows.
	Timezone string `yaml:"timezone"`
}

type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	Migrate     bool   `yaml:"migrate"`
	MaxConns    int32  `yaml:"max_conns"`
}

type CacheConfig struct {
	ContractsTTL time.Duration `yaml:"contracts_ttl"`
	CustomersTTL time.Duration `yaml:"customers_ttl"`
}

type SearchConfig struct {
	Delay time.Duration `yaml:"delay"`
}

// JobsConfig holds cron specs; an empty spec disables the job.
type JobsConfig struct {
	Reconcile       string `yaml:"reconcile"`
	ReconcileRepair bool   `yaml:"reconcile_repair"`
	Expire          string `yaml:"expire"`
	CacheSweep      string `yaml:"cache_sweep"`
	// IdempotencyPurge runs the sweep of replay records older than
	// IdempotencyRetention.
	IdempotencyPurge     string        `yaml:"idempotency_purge"`
	IdempotencyRetention time.Duration `yaml:"idempotency_retention"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              "8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			Timezone:          "UTC",
		},
		Storage: StorageConfig{Backend: "memory", Migrate: true},
		Log:     logger.Config{Level: "info", Format: "text"},
		Cache: CacheConfig{
			ContractsTTL: 5 * time.Minute,
			CustomersTTL: 2 * time.Minute,
		},
		Search: SearchConfig{Delay: 300 * time.Millisecond},
		Jobs: JobsConfig{
			Reconcile:            "@every 15m",
			Expire:               "5 0 * * *",
			CacheSweep:           "@every 1m",
			IdempotencyPurge:     "@every 1h",
			IdempotencyRetention: 24 * time.Hour,
		},
	}
}

// Load builds the configuration. path may be empty; getenv is os.Getenv in production.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s must be a duration (e.g. 5m): %w", key, err)
		}
		*dst = d
		return nil
	}
	setBool := func(key string, dst *bool) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean: %w", key, err)
		}
		*dst = b
		return nil
	}

	setString("PORT", &cfg.Server.Port)
	setString("BUSINESS_TIMEZONE", &cfg.Server.Timezone)
	setString("STORAGE_BACKEND", &cfg.Storage.Backend)
	setString("DATABASE_URL", &cfg.Storage.DatabaseURL)
	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)
	setString("JOBS_RECONCILE", &cfg.Jobs.Reconcile)
	setString("JOBS_EXPIRE", &cfg.Jobs.Expire)
	setString("JOBS_CACHE_SWEEP", &cfg.Jobs.CacheSweep)
	setString("JOBS_IDEMPOTENCY_PURGE", &cfg.Jobs.IdempotencyPurge)

	if v := getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("DB_MAX_CONNS must be an integer: %w", err)
		}
		cfg.Storage.MaxConns = int32(n)
	}

	return errors.Join(
		setDuration("CONTRACTS_CACHE_TTL", &cfg.Cache.ContractsTTL),
		setDuration("CUSTOMERS_CACHE_TTL", &cfg.Cache.CustomersTTL),
		setDuration("SEARCH_DELAY", &cfg.Search.Delay),
		setDuration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout),
		setDuration("IDEMPOTENCY_RETENTION", &cfg.Jobs.IdempotencyRetention),
		setBool("DB_MIGRATE", &cfg.Storage.Migrate),
		setBool("JOBS_RECONCILE_REPAIR", &cfg.Jobs.ReconcileRepair),
	)
}

func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Storage.Backend) {
	case "memory":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url (DATABASE_URL) is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Cache.ContractsTTL <= 0 || c.Cache.CustomersTTL <= 0 {
		errs = append(errs, errors.New("cache TTLs must be positive"))
	}
	if c.Jobs.IdempotencyPurge != "" && c.Jobs.IdempotencyRetention <= 0 {
		errs = append(errs, errors.New("jobs.idempotency_retention must be positive when the purge job is scheduled"))
	}
	if c.Search.Delay <= 0 {
		errs = append(errs, errors.New("search.delay must be positive"))
	}
	return errors.Join(errs...)
}

// Location resolves Server.Timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server.timezone: %w", err)
	}
	return loc, nil
}
