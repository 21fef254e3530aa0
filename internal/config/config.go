// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dotandev/dexmerge/internal/errors"
)

const (
	PolicyKeepFirst = "keep-first"
	PolicyFail      = "fail"
)

// Config represents the general configuration for dexmerge. Precedence is
// defaults, then the first TOML file found, then environment variables.
type Config struct {
	CollisionPolicy       string   `toml:"collision_policy"`
	CompactWasteThreshold int      `toml:"compact_waste_threshold"`
	LogLevel              string   `toml:"log_level"`
	HistoryPath           string   `toml:"history_path"`
	Remove                []string `toml:"remove"`
}

func DefaultConfig() *Config {
	return &Config{
		CollisionPolicy:       PolicyKeepFirst,
		CompactWasteThreshold: 1024 * 1024,
		LogLevel:              "info",
		HistoryPath:           "",
	}
}

// Load builds the configuration from defaults, TOML files and environment
// variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	cfg.CollisionPolicy = getEnv("DEXMERGE_COLLISION_POLICY", cfg.CollisionPolicy)
	cfg.LogLevel = getEnv("DEXMERGE_LOG_LEVEL", cfg.LogLevel)
	cfg.HistoryPath = getEnv("DEXMERGE_HISTORY_PATH", cfg.HistoryPath)
	if v := os.Getenv("DEXMERGE_COMPACT_WASTE_THRESHOLD"); v != "" {
		threshold, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.WrapValidationError(
				fmt.Sprintf("DEXMERGE_COMPACT_WASTE_THRESHOLD is not an integer: %q", v))
		}
		cfg.CompactWasteThreshold = threshold
	}
	if v := os.Getenv("DEXMERGE_REMOVE"); v != "" {
		cfg.Remove = nil
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Remove = append(cfg.Remove, d)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	paths := []string{
		".dexmerge.toml",
		filepath.Join(os.ExpandEnv("$HOME"), ".dexmerge.toml"),
		"/etc/dexmerge/config.toml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(path, c); err != nil {
			return errors.WrapConfigError("failed to parse "+path, err)
		}
		return nil
	}

	return nil
}

func (c *Config) Validate() error {
	switch c.CollisionPolicy {
	case PolicyKeepFirst, PolicyFail:
	default:
		return errors.WrapValidationError(fmt.Sprintf(
			"collision_policy must be %q or %q, got %q",
			PolicyKeepFirst, PolicyFail, c.CollisionPolicy))
	}
	if c.CompactWasteThreshold < 0 {
		return errors.WrapValidationError("compact_waste_threshold cannot be negative")
	}
	for _, d := range c.Remove {
		if !strings.HasPrefix(d, "L") || !strings.HasSuffix(d, ";") {
			return errors.WrapValidationError(fmt.Sprintf(
				"remove entry %q is not a type descriptor (expected the form Lpkg/Name;)", d))
		}
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{Policy: %s, CompactThreshold: %d, LogLevel: %s}",
		c.CollisionPolicy, c.CompactWasteThreshold, c.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
