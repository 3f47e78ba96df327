// Package config loads dsfetch settings from defaults, an optional .env
// file, DSFETCH_* environment variables and an optional config file.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mcuadros/go-defaults"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DSFETCH_WORKERS.
const EnvPrefix = "DSFETCH"

// Config holds all runtime settings.
type Config struct {
	// Bucket and Region locate the listing endpoint.
	Bucket string `mapstructure:"bucket" default:"openproblems-data" validate:"required"`
	Region string `mapstructure:"region" default:"us-east-1" validate:"required"`

	// Endpoint overrides the S3 endpoint, for mirrors and tests.
	Endpoint     string `mapstructure:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `mapstructure:"use_path_style"`

	// BaseURL is prepended to object keys to form download URLs.
	BaseURL string `mapstructure:"base_url" default:"https://openproblems-data.s3.amazonaws.com/" validate:"required,url"`

	CacheDir    string        `mapstructure:"cache_dir" default:".cache" validate:"required"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" default:"1h" validate:"gt=0"`
	DatasetsDir string        `mapstructure:"datasets_dir" default:"datasets" validate:"required"`

	Workers     int    `mapstructure:"workers" default:"8" validate:"min=1"`
	Connections int    `mapstructure:"connections" default:"8" validate:"min=1,max=16"`
	Aria2Binary string `mapstructure:"aria2_binary" default:"aria2c" validate:"required"`
}

var keys = []string{
	"bucket",
	"region",
	"endpoint",
	"use_path_style",
	"base_url",
	"cache_dir",
	"cache_ttl",
	"datasets_dir",
	"workers",
	"connections",
	"aria2_binary",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewDefaultConfig returns a Config populated from the default tags.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load builds the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using environment variables only")
	}

	cfg := NewDefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Debug("using config file", "path", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CachePath is the bbolt database holding listings and transfer records.
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir, "listings.db")
}
