// Package config loads the stratfuse configuration from a YAML file and the
// environment using Viper
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is used when no path is given
	DefaultConfigPath = "./stratfuse.yaml"
	// EnvPrefix namespaces environment overrides, eg: STRATFUSE_LOG_LEVEL
	EnvPrefix = "STRATFUSE"
)

// Config is the application configuration
type Config struct {
	RiskProfile string             `mapstructure:"risk_profile" default:"moderate" validate:"oneof=conservative moderate aggressive"`
	Parallelism int                `mapstructure:"parallelism" default:"4" validate:"min=1,max=256"`
	HistorySize int                `mapstructure:"history_size" default:"100" validate:"min=1"`
	Weights     map[string]float64 `mapstructure:"weights" validate:"omitempty,dive,gte=0,lte=1"`
	Log         LogConfig          `mapstructure:"log"`
	Storage     StorageConfig      `mapstructure:"storage"`
	Learning    LearningConfig     `mapstructure:"learning"`
	Feed        FeedConfig         `mapstructure:"feed"`
	Metrics     MetricsConfig      `mapstructure:"metrics"`
}

// LogConfig configures the console logger
type LogConfig struct {
	Level      string `mapstructure:"level" default:"info" validate:"oneof=trace debug info warn error"`
	TimeFormat string `mapstructure:"time_format" default:"2006-01-02 15:04:05"`
	Color      bool   `mapstructure:"color" default:"true"`
	JSON       bool   `mapstructure:"json"`
}

// StorageConfig selects where weights and characteristics are kept
type StorageConfig struct {
	Driver string      `mapstructure:"driver" default:"bunt" validate:"oneof=bunt memory redis sqlite"`
	Path   string      `mapstructure:"path" default:"./stratfuse.db" validate:"required_if=Driver bunt"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the Redis store
type RedisConfig struct {
	Addr     string `mapstructure:"addr" default:"localhost:6379" validate:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
	Prefix   string `mapstructure:"prefix" default:"stratfuse:"`
}

// LearningConfig configures the background learning loop
type LearningConfig struct {
	Enabled          bool          `mapstructure:"enabled" default:"true"`
	Interval         time.Duration `mapstructure:"interval" default:"1h" validate:"gte=0"`
	MaxTrades        int           `mapstructure:"max_trades" default:"1000" validate:"min=10"`
	Search           bool          `mapstructure:"search"`
	SearchIterations int           `mapstructure:"search_iterations" default:"200" validate:"min=1"`
}

// FeedConfig lists the CSV files analyzed by the command line
type FeedConfig struct {
	Timeframe   string             `mapstructure:"timeframe" default:"1h" validate:"required"`
	Timeframes  []string           `mapstructure:"timeframes" default:"[\"4h\",\"1d\"]"`
	Instruments []InstrumentConfig `mapstructure:"instruments" validate:"dive"`
}

// InstrumentConfig is one CSV file of the feed
type InstrumentConfig struct {
	Instrument string `mapstructure:"instrument" validate:"required"`
	File       string `mapstructure:"file" validate:"required"`
	Timeframe  string `mapstructure:"timeframe"`
	Sector     string `mapstructure:"sector"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" default:":9090"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// settings flattens the keys that can be overridden from the environment
func settings(cfg *Config) map[string]any {
	return map[string]any{
		"risk_profile":               cfg.RiskProfile,
		"parallelism":                cfg.Parallelism,
		"history_size":               cfg.HistorySize,
		"log.level":                  cfg.Log.Level,
		"log.time_format":            cfg.Log.TimeFormat,
		"log.color":                  cfg.Log.Color,
		"log.json":                   cfg.Log.JSON,
		"storage.driver":             cfg.Storage.Driver,
		"storage.path":               cfg.Storage.Path,
		"storage.redis.addr":         cfg.Storage.Redis.Addr,
		"storage.redis.password":     cfg.Storage.Redis.Password,
		"storage.redis.db":           cfg.Storage.Redis.DB,
		"storage.redis.prefix":       cfg.Storage.Redis.Prefix,
		"learning.enabled":           cfg.Learning.Enabled,
		"learning.interval":          cfg.Learning.Interval.String(),
		"learning.max_trades":        cfg.Learning.MaxTrades,
		"learning.search":            cfg.Learning.Search,
		"learning.search_iterations": cfg.Learning.SearchIterations,
		"feed.timeframe":             cfg.Feed.Timeframe,
		"feed.timeframes":            cfg.Feed.Timeframes,
		"metrics.enabled":            cfg.Metrics.Enabled,
		"metrics.address":            cfg.Metrics.Address,
	}
}

// Load reads the configuration file, creating it with defaults when missing.
// Environment variables prefixed with STRATFUSE override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, Default()); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range settings(Default()) {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	v := viper.New()
	for key, value := range settings(cfg) {
		v.Set(key, value)
	}
	if len(cfg.Weights) > 0 {
		v.Set("weights", cfg.Weights)
	}
	if len(cfg.Feed.Instruments) > 0 {
		instruments := make([]map[string]string, 0, len(cfg.Feed.Instruments))
		for _, i := range cfg.Feed.Instruments {
			instruments = append(instruments, map[string]string{
				"instrument": i.Instrument,
				"file":       i.File,
				"timeframe":  i.Timeframe,
				"sector":     i.Sector,
			})
		}
		v.Set("feed.instruments", instruments)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("could not save configuration: %w", err)
	}
	return nil
}

// Validate checks every field against its validate tag
func Validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	problems := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed %s", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}
