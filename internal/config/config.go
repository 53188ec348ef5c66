// Package config loads fwcompat settings.
//
// Precedence, lowest first: built-in defaults, the config file, FWCOMPAT_*
// environment variables, then command-line flags (applied by the caller).
// Nested keys map to environment variables with "." replaced by "_", so
// log.level is FWCOMPAT_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/fwcompat/internal/outputs"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "FWCOMPAT"

// DefaultDBPath is used when no database path is configured.
const DefaultDBPath = "data/fwcompat.db"

// Config is the resolved configuration.
type Config struct {
	DB        string        `mapstructure:"db"`
	SchemaDir string        `mapstructure:"schema_dir"`
	Seed      SeedConfig    `mapstructure:"seed"`
	Outputs   OutputsConfig `mapstructure:"outputs"`
	Log       LogConfig     `mapstructure:"log"`

	// File is the config file that was read, or "" if none.
	File string `mapstructure:"-"`
}

// SeedConfig names the default seed inputs.
type SeedConfig struct {
	Devices       string `mapstructure:"devices"`
	Firmware      string `mapstructure:"firmware"`
	Compatibility string `mapstructure:"compatibility"`
}

// OutputsConfig configures the output validator.
type OutputsConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// LogConfig configures logging. File enables a rotating log file in
// addition to stderr.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", DefaultDBPath)
	v.SetDefault("schema_dir", "")
	v.SetDefault("seed.devices", "data/devices.json")
	v.SetDefault("seed.firmware", "data/firmware_releases.json")
	v.SetDefault("seed.compatibility", "data/firmware_compatibility.json")
	v.SetDefault("outputs.strategy", outputs.StrategyAuto)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// Load resolves the configuration.
//
// If path is empty, fwcompat.{yaml,yml,toml,json} in the working directory
// is read when present. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fwcompat")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command could use.
func (c *Config) Validate() error {
	var problems []string

	if c.DB == "" {
		problems = append(problems, "db must not be empty")
	}
	switch c.Outputs.Strategy {
	case outputs.StrategyAuto, outputs.StrategyFull, outputs.StrategyMinimal:
	default:
		problems = append(problems, fmt.Sprintf("outputs.strategy %q is not one of auto, full, minimal", c.Outputs.Strategy))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		problems = append(problems, "log rotation limits must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
