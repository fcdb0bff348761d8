// Package config loads application settings.
//
// PRECEDENCE (highest wins):
//
//	real environment  >  .env file  >  built-in defaults
//
// godotenv copies .env into the process environment without overriding
// variables that are already set; viper then reads PROMAN_* variables over
// its defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PROMAN_DB_PATH.
const EnvPrefix = "PROMAN"

type Config struct {
	DBPath    string          `mapstructure:"db_path"`
	MediaDir  string          `mapstructure:"media_dir"`
	Log       LogConfig       `mapstructure:"log"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

type ThumbnailConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type IngestConfig struct {
	Workers   int `mapstructure:"workers"`
	MaxPixels int `mapstructure:"max_pixels"`
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error) and returns the merged configuration.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key. AutomaticEnv only consults the
// environment for keys viper already knows about, so each key needs one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "projects.db")
	v.SetDefault("media_dir", "media")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("thumbnail.width", 300)
	v.SetDefault("thumbnail.height", 200)

	v.SetDefault("ingest.workers", 2)
	v.SetDefault("ingest.max_pixels", 100_000_000)
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if strings.TrimSpace(cfg.MediaDir) == "" {
		return fmt.Errorf("media_dir is required")
	}
	if cfg.Thumbnail.Width <= 0 || cfg.Thumbnail.Height <= 0 {
		return fmt.Errorf("thumbnail size must be positive, got %dx%d", cfg.Thumbnail.Width, cfg.Thumbnail.Height)
	}
	if cfg.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be at least 1")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}
