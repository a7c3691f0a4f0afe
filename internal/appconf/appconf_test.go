// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

package appconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.AllCPUsDefault)
	assert.True(t, cfg.TickMarksEnabled)
	assert.True(t, cfg.FrequencyTicks)
	assert.False(t, cfg.EnergyPrefPerCPU)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	cfg := Config{
		AllCPUsDefault:   true,
		TickMarksEnabled: false,
		FrequencyTicks:   true,
		EnergyPrefPerCPU: true,
		DefaultProfile:   "quiet",
	}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestKeysMatchConfigSurface(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Config{AllCPUsDefault: true, DefaultProfile: "quiet"}
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "allcpus_default: true")
	assert.Contains(t, text, "tick_marks_enabled: false")
	assert.Contains(t, text, "frequency_ticks: false")
	assert.Contains(t, text, "energy_pref_per_cpu: false")
	assert.Contains(t, text, "profile: quiet")
}

func TestDirHonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "cpupowerctl"), Dir())
}
