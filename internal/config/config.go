// Package config provides unified configuration loading for cougar.
// Supports YAML files, a .env file, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/luifiio/cougar/internal/enrich"
	"github.com/luifiio/cougar/internal/scoring"
)

// DefaultUserAgent identifies cougar to the upstream knowledge sources.
const DefaultUserAgent = "cougar/1.0 (https://github.com/luifiio/cougar)"

// Config holds all configuration for cougar.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Paths         PathsConfig         `yaml:"paths"`
	Cache         CacheConfig         `yaml:"cache"`
	Source        SourceConfig        `yaml:"source"`
	Resolver      ResolverConfig      `yaml:"resolver"`
	Observability ObservabilityConfig `yaml:"observability"`

	// Scoring holds the candidate score weights.
	Scoring scoring.Weights `yaml:"scoring"`
	// Properties lists the Wikidata properties merged into specs.
	Properties enrich.PropertyMapping `yaml:"properties"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// PathsConfig locates the on-disk catalog and assets.
type PathsConfig struct {
	DataFile     string `yaml:"data_file"`
	CacheFile    string `yaml:"cache_file"`
	MappingsFile string `yaml:"mappings_file"`
	StaticDir    string `yaml:"static_dir"`
	MediaDir     string `yaml:"media_dir"`
	RootDir      string `yaml:"root_dir"`
}

// CacheConfig holds enrichment cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory, file, redis, sqlite or postgres
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
	SQL        SQLConfig     `yaml:"sql"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// SQLConfig holds settings for the sqlite and postgres cache backends.
type SQLConfig struct {
	DSN          string `yaml:"dsn"`
	Table        string `yaml:"table"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// SourceConfig holds outbound knowledge-source settings.
type SourceConfig struct {
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	WikipediaAPI  string        `yaml:"wikipedia_api"`
	WikipediaREST string        `yaml:"wikipedia_rest"`
	WikipediaPage string        `yaml:"wikipedia_page"`
	WikidataAPI   string        `yaml:"wikidata_api"`
	// MaxLinkedEntities caps the linked entities walked per item. Zero walks
	// every one; a cap can drop the engine entity and change ranking.
	MaxLinkedEntities int `yaml:"max_linked_entities"`
}

// ResolverConfig holds resolution flow settings.
type ResolverConfig struct {
	SearchLimit  int  `yaml:"search_limit"`
	AttachClaims bool `yaml:"attach_claims"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Load reads configuration from a YAML file and applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		if cfg.Paths.RootDir != "" {
			cfg.Paths.RootDir = ResolveRelativePath(path, cfg.Paths.RootDir)
		}
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     90 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Paths: PathsConfig{
			DataFile:     "data/cars.json",
			CacheFile:    "data/wiki_cache.json",
			MappingsFile: "data/mappings.json",
			StaticDir:    ".",
			MediaDir:     "data/thumbs",
			RootDir:      ".",
		},
		Cache: CacheConfig{
			Driver:     "file",
			TTL:        7 * 24 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "cougar:",
			},
			SQL: SQLConfig{
				DSN:          "data/wiki_cache.db",
				Table:        "wiki_cache",
				MaxOpenConns: 1,
			},
		},
		Source: SourceConfig{
			UserAgent:         DefaultUserAgent,
			Timeout:           15 * time.Second,
			RatePerSecond:     5,
			Burst:             5,
			WikipediaAPI:      "https://en.wikipedia.org/w/api.php",
			WikipediaREST:     "https://en.wikipedia.org/api/rest_v1",
			WikipediaPage:     "https://en.wikipedia.org/wiki",
			WikidataAPI:       "https://www.wikidata.org/w/api.php",
			MaxLinkedEntities: 0,
		},
		Resolver: ResolverConfig{
			SearchLimit:  8,
			AttachClaims: true,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "console",
			MetricsEnabled: true,
		},
		Scoring:    scoring.DefaultWeights(),
		Properties: enrich.DefaultPropertyMapping(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Cache.Driver {
	case "memory", "file", "redis", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}

	if (c.Cache.Driver == "sqlite" || c.Cache.Driver == "postgres") && c.Cache.SQL.DSN == "" {
		return fmt.Errorf("cache driver %s requires cache.sql.dsn", c.Cache.Driver)
	}

	if c.Cache.Driver == "file" && c.Paths.CacheFile == "" {
		return fmt.Errorf("cache driver file requires paths.cache_file")
	}

	if strings.TrimSpace(c.Source.UserAgent) == "" {
		return fmt.Errorf("source user_agent must not be empty")
	}

	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source timeout must be positive")
	}

	if c.Source.MaxLinkedEntities < 0 {
		return fmt.Errorf("max_linked_entities must not be negative")
	}

	if c.Resolver.SearchLimit < 1 || c.Resolver.SearchLimit > 50 {
		return fmt.Errorf("search_limit must be between 1 and 50")
	}

	return nil
}

// Resolve returns p joined onto the configured root directory unless p is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.RootDir, p)
}

// CacheDSN returns the connection string for the configured cache driver.
func (c *Config) CacheDSN() string {
	switch c.Cache.Driver {
	case "sqlite":
		return c.Resolve(c.Cache.SQL.DSN)
	case "file":
		return c.Resolve(c.Paths.CacheFile)
	default:
		return c.Cache.SQL.DSN
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("COUGAR_USER_AGENT"); v != "" {
		cfg.Source.UserAgent = v
	}

	if v := os.Getenv("COUGAR_WIKI_CACHE_TTL_DAYS"); v != "" {
		if days, err := strconv.ParseFloat(v, 64); err == nil && days > 0 {
			cfg.Cache.TTL = time.Duration(days * float64(24*time.Hour))
		}
	}

	if v := os.Getenv("COUGAR_MAX_LINKED_ENTITIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Source.MaxLinkedEntities = n
		}
	}

	if v := os.Getenv("COUGAR_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Cache.Driver = "sqlite"
			cfg.Cache.SQL.DSN = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Cache.Driver = "postgres"
			cfg.Cache.SQL.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		// Parse redis://host:port format
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("COUGAR_DEBUG"); v != "" && v != "0" && v != "false" {
		cfg.Observability.LogLevel = "debug"
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
