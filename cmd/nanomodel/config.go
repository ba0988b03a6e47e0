package main

import (
	"fmt"
	"time"

	"github.com/arthur-debert/nanomodel/nanomodel/storage/mongo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the resolved CLI configuration.
type Config struct {
	Schema  string        `mapstructure:"schema"`
	Backend string        `mapstructure:"backend"` // json|memory|mongo
	DB      string        `mapstructure:"db"`
	Format  string        `mapstructure:"format"` // json|yaml
	Timeout time.Duration `mapstructure:"timeout"`
	Log     LogConfig     `mapstructure:"log"`
	Mongo   mongo.Config  `mapstructure:"mongo"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level      string `mapstructure:"level"` // debug/info/warn/error
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Dev        bool   `mapstructure:"dev"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "json")
	v.SetDefault("db", "nanomodel.json")
	v.SetDefault("format", "json")
	v.SetDefault("timeout", "10s")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("mongo.database", "nanomodel")
	v.SetDefault("mongo.connect_timeout", "3s")
}

func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	switch cfg.Format {
	case "json", "yaml":
	default:
		return Config{}, fmt.Errorf("unknown output format %q", cfg.Format)
	}
	switch cfg.Backend {
	case "json", "memory", "mongo":
	default:
		return Config{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}
