// Catalogd - Catalog Administration Backend
// Copyright 2026 TMOJ Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tmojlabs/catalogd

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/catalogd/config.yaml",
	"/etc/catalogd/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CATALOGD_CONFIG"

// envPrefix scopes environment overrides to this service.
const envPrefix = "CATALOGD_"

// envKeyMap maps environment variable names (without prefix) to koanf
// paths. An explicit table avoids guessing where underscores split into
// nesting (JWT_SECRET is one key under security, not security.jwt.secret).
var envKeyMap = map[string]string{
	"SERVER_HOST":               "server.host",
	"SERVER_PORT":               "server.port",
	"SERVER_READ_TIMEOUT":       "server.read_timeout",
	"SERVER_WRITE_TIMEOUT":      "server.write_timeout",
	"SERVER_SHUTDOWN_TIMEOUT":   "server.shutdown_timeout",
	"STORE_DIR":                 "store.dir",
	"STORE_IN_MEMORY":           "store.in_memory",
	"STORE_GC_INTERVAL":         "store.gc_interval",
	"JWT_SECRET":                "security.jwt_secret",
	"TOKEN_TTL":                 "security.token_ttl",
	"CORS_ORIGINS":              "security.cors_origins",
	"RATE_LIMIT_REQUESTS":       "security.rate_limit_requests",
	"LOGIN_ATTEMPTS_PER_MINUTE": "security.login_attempts_per_minute",
	"ADMIN_USERNAME":            "seed.admin_username",
	"ADMIN_PASSWORD":            "seed.admin_password",
	"LOG_LEVEL":                 "log.level",
	"LOG_FORMAT":                "log.format",
}

// sliceConfigPaths lists paths parsed from comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// Load builds the configuration from defaults, an optional YAML file, and
// CATALOGD_-prefixed environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(key string) string {
		return envKeyMap[strings.TrimPrefix(key, envPrefix)]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// processSliceFields re-parses slice paths that arrived as comma-separated
// strings from environment variables.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		raw := k.Get(path)
		strVal, ok := raw.(string)
		if !ok {
			continue
		}

		var values []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}

		//nolint:errcheck // Set only fails on nil koanf
		k.Set(path, values)
	}
}
