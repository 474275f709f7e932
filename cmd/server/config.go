package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, read from an optional YAML file with
// HFSTOL_* environment-variable overrides on top.
type Config struct {
	Addr        string        `yaml:"addr"`
	Lexicon     string        `yaml:"lexicon"`
	FastWorkers int           `yaml:"fastWorkers"`
	MaxBatch    int           `yaml:"maxBatch"`
	Logging     LoggingConfig `yaml:"logging"`
	CORS        CORSConfig    `yaml:"cors"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CORSConfig controls the allowed cross-origin callers.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

func defaultConfig() *Config {
	return &Config{
		Addr:        ":8080",
		FastWorkers: 4,
		MaxBatch:    10000,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// loadConfig reads path (when non-empty) and applies environment overrides.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HFSTOL_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("HFSTOL_LEXICON"); v != "" {
		cfg.Lexicon = v
	}
	if v := os.Getenv("HFSTOL_FAST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FastWorkers = n
		}
	}
	if v := os.Getenv("HFSTOL_MAX_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxBatch = n
		}
	}
	if v := os.Getenv("HFSTOL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HFSTOL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("HFSTOL_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
}
