// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/kgsync/kg/noise"
)

var configValidate = validator.New()

// Config is kgsync's on-disk configuration, loaded once at startup from
// the file named by the --config flag (kgsync.yaml by default).
type Config struct {
	Storage StorageConfig `yaml:"storage" validate:"required"`
	Vector  VectorConfig  `yaml:"vector" validate:"required"`
	Embed   EmbedConfig   `yaml:"embed"`
	Resolve ResolveConfig `yaml:"resolve"`
	Noise   NoiseConfig   `yaml:"noise"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig names the on-disk locations for the property graph,
// relational, and cache adapters. All three are BadgerDB/SQLite-backed
// embedded stores; there is no network dependency for the default
// configuration.
type StorageConfig struct {
	GraphDir      string `yaml:"graph_dir" validate:"required"`
	CacheDir      string `yaml:"cache_dir"`
	RelationalDSN string `yaml:"relational_dsn"`
}

// VectorConfig selects and configures the embedding store backend.
// Backend is either "sqlite" (the embedded default) or "weaviate".
type VectorConfig struct {
	Backend      string `yaml:"backend" validate:"omitempty,oneof=sqlite weaviate"`
	SQLitePath   string `yaml:"sqlite_path"`
	WeaviateHost string `yaml:"weaviate_host"`
	WeaviateHTTP string `yaml:"weaviate_scheme"`
}

// EmbedConfig selects the embedding provider. When Model is empty the
// provider's own default (text-embedding-3-small) applies.
type EmbedConfig struct {
	Model string `yaml:"model"`
}

// ResolveConfig mirrors a tsconfig-style baseUrl/paths block used to
// resolve bare module specifiers during parsing.
type ResolveConfig struct {
	BaseURL string              `yaml:"base_url"`
	Paths   map[string][]string `yaml:"paths"`
}

// NoiseConfig overrides the noise package's default thresholds.
type NoiseConfig struct {
	MinNameLength         int      `yaml:"min_name_length"`
	StoplistExtra         []string `yaml:"stoplist_extra"`
	MinInferredConfidence float64  `yaml:"min_inferred_confidence"`
	SecurityMinConfidence float64  `yaml:"security_min_confidence"`
	SecurityMinSeverity   string   `yaml:"security_min_severity"`
}

// LoggingConfig configures pkg/logging's Logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	LogDir string `yaml:"log_dir"`
	JSON   bool   `yaml:"json"`
}

// defaultConfig is used for any field the config file leaves zero, and
// as the whole config when no file is given.
func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			GraphDir:      "~/.kgsync/graph",
			CacheDir:      "~/.kgsync/cache",
			RelationalDSN: "~/.kgsync/relational.db",
		},
		Vector: VectorConfig{
			Backend:    "sqlite",
			SQLitePath: "~/.kgsync/vectors.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// loadConfig reads and parses a YAML config file, falling back to
// defaultConfig for any field the file does not set. An empty path
// means "use defaults with no file at all".
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// noiseConfig translates the YAML-facing NoiseConfig into noise.Config,
// layering any non-zero override on top of noise.Default().
func (c NoiseConfig) noiseConfig() noise.Config {
	cfg := noise.Default()
	if c.MinNameLength > 0 {
		cfg.MinNameLength = c.MinNameLength
	}
	if len(c.StoplistExtra) > 0 {
		cfg = cfg.WithExtraStoplist(c.StoplistExtra)
	}
	if c.MinInferredConfidence > 0 {
		cfg.MinInferredConfidence = c.MinInferredConfidence
	}
	if c.SecurityMinConfidence > 0 {
		cfg.SecurityMinConfidence = c.SecurityMinConfidence
	}
	if c.SecurityMinSeverity != "" {
		cfg.SecurityMinSeverity = noise.ParseSeverity(c.SecurityMinSeverity)
	}
	return cfg
}
