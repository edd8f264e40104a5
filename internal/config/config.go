// Package config provides configuration management for the key-value
// store. It loads settings from a YAML file and environment variables,
// with thread-safe singleton access, then lets CLI flags override the
// result.
package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all application configuration values.
type Config struct {
	Addr             string `yaml:"ADDR"`
	Engine           string `yaml:"ENGINE"`
	DataDir          string `yaml:"DATA_DIR"`
	SyncOnEveryWrite bool   `yaml:"SYNC_ON_EVERY_WRITE"`
	CompactionFactor uint32 `yaml:"COMPACTION_FACTOR"`
}

// Default returns the built-in defaults, used when no config file is
// present and no flag overrides a field.
func Default() *Config {
	return &Config{
		Addr:             "127.0.0.1:4000",
		Engine:           "kvs",
		DataDir:          "./data",
		SyncOnEveryWrite: true,
		CompactionFactor: 3,
	}
}

const configPath = "internal/config/config.yml"

var (
	appConfig *Config
	once      sync.Once
	initErr   error
)

// LoadConfig reads configuration values from config.yml, layering them
// over the built-in defaults, and optionally from a .env file.
// It uses a sync.Once to ensure configuration is loaded only once, even
// with concurrent calls. Environment variables in the YAML file are
// expanded using os.ExpandEnv.
func LoadConfig() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found or error loading it", "error", err)
		} else {
			slog.Debug(".env file loaded successfully")
		}

		cfg := Default()

		file, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Debug("no config file found, using defaults", "path", configPath)
				appConfig = cfg
				return
			}
			initErr = err
			return
		}

		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(file))), cfg); err != nil {
			initErr = err
			return
		}
		appConfig = cfg
	})
	if initErr != nil {
		return nil, initErr
	}
	return appConfig, initErr
}

// GetConfig returns the singleton configuration instance.
// Panics if configuration has not been loaded yet. This function should
// only be called after LoadConfig has been successfully called.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded - call LoadConfig() first")
	}
	return appConfig
}
