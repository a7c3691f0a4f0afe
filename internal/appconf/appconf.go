// Package appconf round-trips the application configuration file. The engine
// only consumes these values as initial toggle states; it does not interpret
// them further.
package appconf

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Config mirrors the recognized option keys of the original configuration
// file, names kept verbatim.
type Config struct {
	AllCPUsDefault   bool   `yaml:"allcpus_default"`
	TickMarksEnabled bool   `yaml:"tick_marks_enabled"`
	FrequencyTicks   bool   `yaml:"frequency_ticks"`
	EnergyPrefPerCPU bool   `yaml:"energy_pref_per_cpu"`
	DefaultProfile   string `yaml:"profile,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		TickMarksEnabled: true,
		FrequencyTicks:   true,
	}
}

// Dir returns the configuration directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cpupowerctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "cpupowerctl"
	}
	return filepath.Join(home, ".config", "cpupowerctl")
}

// Path returns the default config file location.
func Path() string { return filepath.Join(Dir(), "config.yaml") }

// ProfilesPath returns the default profiles file location.
func ProfilesPath() string { return filepath.Join(Dir(), "profiles.yaml") }

// Load reads the config file at path, returning defaults when it is absent.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(&c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
