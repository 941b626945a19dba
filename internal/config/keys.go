package config

import (
	"fmt"
	"os"
	"strings"
)

// SettingSource represents where an effective setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective policy setting.
type SettingStatus struct {
	Key    string        `json:"key"`
	Value  string        `json:"value"`
	Source SettingSource `json:"source"`
}

// CheckSettings returns the effective patch policy and where each value
// came from.
func CheckSettings(cfg *Config) []SettingStatus {
	return []SettingStatus{
		checkSetting("patch.tolerance", fmt.Sprint(cfg.Patch.Tolerance), "0.5"),
		checkSetting("patch.efficiency_cap", fmt.Sprint(cfg.Patch.EfficiencyCap), "100"),
		checkSetting("patch.title_prefix", cfg.Patch.TitlePrefix, "Dynamic Threshold NaN Filled"),
		checkSetting("patch.aggregate_files", strings.Join(cfg.Patch.AggregateFiles, ","), "report.html,nan_comparison.html"),
		checkSetting("audit.workers", fmt.Sprint(cfg.Audit.Workers), "4"),
		checkSetting("logging.level", cfg.Logging.Level, "warn"),
		checkSetting("logging.format", cfg.Logging.Format, "text"),
	}
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// checkSetting reports whether a value differs from its default and, if so,
// whether the environment supplied it.
func checkSetting(key, value, def string) SettingStatus {
	status := SettingStatus{Key: key, Value: value, Source: SourceDefault}

	if _, ok := os.LookupEnv(EnvName(key)); ok {
		status.Source = SourceEnv
	} else if value != def {
		status.Source = SourceConfig
	}
	return status
}
