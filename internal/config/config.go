// Package config handles configuration loading for nilmpatch.
// It supports an optional YAML config file with environment variable
// overrides. With neither present the defaults reproduce the standard
// patch policy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "NILMPATCH"

// Config represents the complete application configuration.
type Config struct {
	Patch   PatchConfig   `mapstructure:"patch"   yaml:"patch"`
	Audit   AuditConfig   `mapstructure:"audit"   yaml:"audit"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// PatchConfig holds the correction policy.
type PatchConfig struct {
	Tolerance      float64  `mapstructure:"tolerance"       yaml:"tolerance"`       // percentage points
	EfficiencyCap  float64  `mapstructure:"efficiency_cap"  yaml:"efficiency_cap"`  // percent
	TitlePrefix    string   `mapstructure:"title_prefix"    yaml:"title_prefix"`
	AggregateFiles []string `mapstructure:"aggregate_files" yaml:"aggregate_files"`
}

// AuditConfig holds settings for the read-only audit command.
type AuditConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/nilmpatch.yaml
//  2. ~/.nilmpatch/nilmpatch.yaml
//  3. /etc/nilmpatch/nilmpatch.yaml
//
// Environment variables override config file values.
// Format: NILMPATCH_<SECTION>_<KEY>, e.g., NILMPATCH_PATCH_TOLERANCE
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("nilmpatch")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".nilmpatch"))
	v.AddConfigPath("/etc/nilmpatch")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets the standard patch policy.
func setDefaults(v *viper.Viper) {
	v.SetDefault("patch.tolerance", 0.5)
	v.SetDefault("patch.efficiency_cap", 100.0)
	v.SetDefault("patch.title_prefix", "Dynamic Threshold NaN Filled")
	v.SetDefault("patch.aggregate_files", []string{"report.html", "nan_comparison.html"})

	v.SetDefault("audit.workers", 4)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
}

// Validate rejects settings that would make the patcher rewrite reports
// into a worse state.
func (c *Config) Validate() error {
	if c.Patch.Tolerance <= 0 {
		return fmt.Errorf("patch.tolerance must be positive, got %v", c.Patch.Tolerance)
	}
	if c.Patch.EfficiencyCap <= 0 {
		return fmt.Errorf("patch.efficiency_cap must be positive, got %v", c.Patch.EfficiencyCap)
	}
	if strings.TrimSpace(c.Patch.TitlePrefix) == "" {
		return fmt.Errorf("patch.title_prefix must not be empty")
	}
	for _, name := range c.Patch.AggregateFiles {
		if name != filepath.Base(name) {
			return fmt.Errorf("patch.aggregate_files entry %q must be a bare filename", name)
		}
	}
	if c.Audit.Workers < 1 {
		c.Audit.Workers = 1
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
