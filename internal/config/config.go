package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for a graviton invocation.
// Values are populated from .graviton.yaml, GRAVITON_* env vars, and CLI
// flags.
type Config struct {
	ModelPath     string `mapstructure:"model_path"`
	Mode          string `mapstructure:"mode"` // auto, forward, reverse
	TelemetryPath string `mapstructure:"telemetry_path"`
	RecordDB      string `mapstructure:"record_db"`
	Color         bool   `mapstructure:"color"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("model_path", "model.toml")
	viper.SetDefault("mode", "auto")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("record_db", "")
	viper.SetDefault("color", true)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
