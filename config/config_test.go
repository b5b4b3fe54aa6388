/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{EnvPath, EnvToken, EnvDebug, EnvSynchronize, EnvEngineOptions} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" || cfg.Token != "" || cfg.Debug || cfg.SynchronizeOnStart {
		t.Errorf("empty environment should yield zero config, got %+v", cfg)
	}
	if cfg.Options != nil {
		t.Errorf("Options = %v, want nil", cfg.Options)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvPath, " /tmp/registry.db ")
	t.Setenv(EnvToken, "secret")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvSynchronize, "1")
	t.Setenv(EnvEngineOptions, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "/tmp/registry.db" {
		t.Errorf("Path = %q, want trimmed /tmp/registry.db", cfg.Path)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Token)
	}
	if !cfg.Debug || !cfg.SynchronizeOnStart {
		t.Errorf("boolean flags not parsed: %+v", cfg)
	}
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv(EnvDebug, "definitely")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject an unparsable boolean")
	}
}

func TestLoadEngineOptionsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	content := "cache: shared\n_txlock: immediate\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write options file: %v", err)
	}

	t.Setenv(EnvDebug, "")
	t.Setenv(EnvSynchronize, "")
	t.Setenv(EnvEngineOptions, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Options["cache"] != "shared" || cfg.Options["_txlock"] != "immediate" {
		t.Errorf("Options = %v", cfg.Options)
	}
}

func TestLoadEngineOptionsMissingFile(t *testing.T) {
	t.Setenv(EnvDebug, "")
	t.Setenv(EnvSynchronize, "")
	t.Setenv(EnvEngineOptions, filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when the options file is missing")
	}
}
