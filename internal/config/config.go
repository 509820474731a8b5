// Package config loads tool configuration: an optional config.yaml next to
// the binary, overridden by ASTROGATOR_* environment variables, with a
// .env file loaded first for local development.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is everything the binary needs to start.
type Config struct {
	DBPath           string `mapstructure:"db_path"`
	Port             int    `mapstructure:"port"`
	AdminKey         string `mapstructure:"admin_key"`
	DefaultScanRange int    `mapstructure:"default_scan_range"`
	DemoWorlds       int    `mapstructure:"demo_worlds"`
	DemoTurns        int    `mapstructure:"demo_turns"`
}

// Load reads configuration. A missing config.yaml is fine; defaults and
// environment cover everything.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("db_path", "data/astrogator.db")
	v.SetDefault("port", 8700)
	v.SetDefault("admin_key", "")
	v.SetDefault("default_scan_range", 100)
	v.SetDefault("demo_worlds", 0)
	v.SetDefault("demo_turns", 5)

	v.SetEnvPrefix("ASTROGATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
