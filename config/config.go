/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads the registry's engine configuration from the
// environment. The registry itself never produces configuration; hosts hand
// a Config to the facade at construction time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consumed by Load.
const (
	EnvPath          = "ENTITYSCOPE_DB_PATH"
	EnvToken         = "ENTITYSCOPE_DB_TOKEN"
	EnvDebug         = "ENTITYSCOPE_DEBUG"
	EnvSynchronize   = "ENTITYSCOPE_SYNCHRONIZE"
	EnvEngineOptions = "ENTITYSCOPE_ENGINE_OPTIONS"
)

// Config is the engine configuration consumed by the registry.
type Config struct {
	// Path is the database location or connection string.
	Path string
	// Token is an optional credential token passed to the engine.
	Token string
	// Debug enables verbose registry logging.
	Debug bool
	// SynchronizeOnStart requests a safe schema synchronization as part of
	// engine initialization.
	SynchronizeOnStart bool
	// Options carries opaque engine options passed through verbatim.
	Options map[string]string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present. ENTITYSCOPE_ENGINE_OPTIONS may point at a YAML file
// of opaque key/value engine options.
func Load() (*Config, error) {
	// A missing .env file is fine; explicit environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Path:  strings.TrimSpace(os.Getenv(EnvPath)),
		Token: os.Getenv(EnvToken),
	}

	var err error
	if cfg.Debug, err = boolEnv(EnvDebug); err != nil {
		return nil, err
	}
	if cfg.SynchronizeOnStart, err = boolEnv(EnvSynchronize); err != nil {
		return nil, err
	}

	if optionsPath := strings.TrimSpace(os.Getenv(EnvEngineOptions)); optionsPath != "" {
		options, err := loadOptions(optionsPath)
		if err != nil {
			return nil, err
		}
		cfg.Options = options
	}

	return cfg, nil
}

func boolEnv(key string) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return value, nil
}

func loadOptions(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine options %s: %w", path, err)
	}
	options := make(map[string]string)
	if err := yaml.Unmarshal(content, &options); err != nil {
		return nil, fmt.Errorf("parse engine options %s: %w", path, err)
	}
	return options, nil
}
