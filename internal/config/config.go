// Package config loads the bot configuration: the shared core settings
// plus the key storage backend.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/nearmod/keybot/core/config"
	coredatabase "github.com/nearmod/keybot/core/database"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = coredatabase.DriverPostgres
	DriverSQLite   = coredatabase.DriverSQLite
	DriverRedis    = "redis"
)

// FileConfig configures the JSON file store.
type FileConfig struct {
	Path string `yaml:"path" envconfig:"KEYS_FILE"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Key      string `yaml:"key" envconfig:"REDIS_KEY"`
}

// StorageConfig selects and configures the key store.
type StorageConfig struct {
	Driver string      `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	File   FileConfig  `yaml:"file"`
	Redis  RedisConfig `yaml:"redis"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig returns the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// UsesSQL reports whether the selected store lives in a SQL database.
func (c *Config) UsesSQL() bool {
	return c.Storage.Driver == DriverPostgres || c.Storage.Driver == DriverSQLite
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.LoadInto(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills storage defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "json" {
		driver = DriverFile
	}
	cfg.Storage.Driver = driver

	switch driver {
	case DriverFile:
		if strings.TrimSpace(cfg.Storage.File.Path) == "" {
			cfg.Storage.File.Path = "keys.json"
		}
	case DriverPostgres, DriverSQLite:
		// The storage driver wins over database.driver.
		cfg.Database.Driver = driver
		if driver == DriverPostgres && cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if err := cfg.Database.Validate(); err != nil {
			return err
		}
	case DriverRedis:
		if strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis driver")
		}
		if cfg.Storage.Redis.DB < 0 {
			return fmt.Errorf("storage.redis.db must be >= 0")
		}
		if strings.TrimSpace(cfg.Storage.Redis.Key) == "" {
			cfg.Storage.Redis.Key = "nearmod:keys"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres, sqlite, redis", cfg.Storage.Driver)
	}
	return nil
}
