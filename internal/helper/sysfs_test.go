// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSysfsTree builds a fake cpufreq sysfs tree for the given CPUs. CPU 0
// gets no online file, matching real hardware.
func writeSysfsTree(t *testing.T, cpus int) *Sysfs {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "present"), fmt.Sprintf("0-%d", cpus-1))
	writeFile(t, filepath.Join(root, "online"), fmt.Sprintf("0-%d", cpus-1))
	writeFile(t, filepath.Join(root, "offline"), "")

	for cpu := 0; cpu < cpus; cpu++ {
		dir := filepath.Join(root, fmt.Sprintf("cpu%d", cpu), "cpufreq")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		writeFile(t, filepath.Join(dir, "cpuinfo_min_freq"), "800000")
		writeFile(t, filepath.Join(dir, "cpuinfo_max_freq"), "3200000")
		writeFile(t, filepath.Join(dir, "scaling_min_freq"), "800000")
		writeFile(t, filepath.Join(dir, "scaling_max_freq"), "3200000")
		writeFile(t, filepath.Join(dir, "scaling_cur_freq"), "1547000")
		writeFile(t, filepath.Join(dir, "scaling_governor"), "powersave")
		writeFile(t, filepath.Join(dir, "scaling_available_governors"), "performance powersave")
		writeFile(t, filepath.Join(dir, "energy_performance_preference"), "balance_performance")
		writeFile(t, filepath.Join(dir, "energy_performance_available_preferences"), "default performance balance_performance balance_power power")
		if cpu != 0 {
			writeFile(t, filepath.Join(root, fmt.Sprintf("cpu%d", cpu), "online"), "1")
		}
	}
	return &Sysfs{Root: root}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content+"\n"), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestParseRangeList(t *testing.T) {
	tests := []struct {
		input    string
		expected []int
	}{
		{"0-3", []int{0, 1, 2, 3}},
		{"0-1,4-5", []int{0, 1, 4, 5}},
		{"2", []int{2}},
		{"0,2,4", []int{0, 2, 4}},
		{"", nil},
		{"0-3,7\n", []int{0, 1, 2, 3, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseRangeList(tt.input))
		})
	}
}

func TestCpuSets(t *testing.T) {
	s := writeSysfsTree(t, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, s.CpusPresent())
	assert.Equal(t, []int{0, 1, 2, 3}, s.CpusOnline())
	assert.Empty(t, s.CpusOffline())
	assert.Equal(t, s.CpusPresent(), s.CpusAvailable())
}

func TestCpuAllowedOffline(t *testing.T) {
	s := writeSysfsTree(t, 2)
	assert.False(t, s.CpuAllowedOffline(0), "boot CPU has no online switch")
	assert.True(t, s.CpuAllowedOffline(1))
}

func TestReadCPU(t *testing.T) {
	s := writeSysfsTree(t, 2)
	settings, err := s.ReadCPU(1)
	require.NoError(t, err)

	assert.Equal(t, 1, settings.CPU())
	assert.True(t, settings.Online())
	hw := settings.Hardware()
	assert.Equal(t, 800.0, hw.MinFreq, "kHz converted to MHz")
	assert.Equal(t, 3200.0, hw.MaxFreq)
	assert.Equal(t, []string{"performance", "powersave"}, hw.Governors)
	assert.Len(t, hw.EnergyPrefs, 5)
	assert.True(t, hw.AllowOffline)

	minFreq, maxFreq := settings.Freqs()
	assert.Equal(t, 800.0, minFreq)
	assert.Equal(t, 3200.0, maxFreq)
	assert.Equal(t, "powersave", settings.Governor())
	assert.Equal(t, "balance_performance", settings.EnergyPref())
	assert.False(t, settings.Changed(), "fresh read captures its own baseline")
}

func TestReadCPUWithoutEnergyPrefs(t *testing.T) {
	s := writeSysfsTree(t, 1)
	dir := filepath.Join(s.Root, "cpu0", "cpufreq")
	require.NoError(t, os.Remove(filepath.Join(dir, "energy_performance_preference")))
	require.NoError(t, os.Remove(filepath.Join(dir, "energy_performance_available_preferences")))

	settings, err := s.ReadCPU(0)
	require.NoError(t, err)
	assert.False(t, settings.Hardware().HasEnergyPrefs())
	assert.Equal(t, "", settings.EnergyPref())
}

func TestCurrentFreq(t *testing.T) {
	s := writeSysfsTree(t, 1)
	freq, err := s.CurrentFreq(0)
	require.NoError(t, err)
	assert.Equal(t, 1547.0, freq)
}

func TestUpdateCpuSettingsWritesKHz(t *testing.T) {
	s := writeSysfsTree(t, 1)
	ret := s.UpdateCpuSettings(0, 1200000, 2400000)
	assert.Equal(t, 0, ret)
	dir := filepath.Join(s.Root, "cpu0", "cpufreq")
	assert.Equal(t, "1200000", readFile(t, filepath.Join(dir, "scaling_min_freq")))
	assert.Equal(t, "2400000", readFile(t, filepath.Join(dir, "scaling_max_freq")))
}

func TestUpdateGovernorAndEnergyPref(t *testing.T) {
	s := writeSysfsTree(t, 1)
	assert.Equal(t, 0, s.UpdateCpuGovernor(0, "performance"))
	assert.Equal(t, 0, s.UpdateCpuEnergyPrefs(0, "power"))
	dir := filepath.Join(s.Root, "cpu0", "cpufreq")
	assert.Equal(t, "performance", readFile(t, filepath.Join(dir, "scaling_governor")))
	assert.Equal(t, "power", readFile(t, filepath.Join(dir, "energy_performance_preference")))
}

func TestSetCpuOnlineOffline(t *testing.T) {
	s := writeSysfsTree(t, 2)
	assert.Equal(t, 0, s.SetCpuOffline(1))
	assert.Equal(t, "0", readFile(t, filepath.Join(s.Root, "cpu1", "online")))
	assert.Equal(t, 0, s.SetCpuOnline(1))
	assert.Equal(t, "1", readFile(t, filepath.Join(s.Root, "cpu1", "online")))
}

func TestWriteFailureReturnsNonZero(t *testing.T) {
	s := writeSysfsTree(t, 1)
	ret := s.write(filepath.Join(s.Root, "cpu9", "missing"), "1")
	assert.NotEqual(t, 0, ret)
}

func TestIsOnline(t *testing.T) {
	s := writeSysfsTree(t, 2)
	assert.True(t, s.isOnline(0), "boot CPU without online file counts as online")
	assert.True(t, s.isOnline(1))
	writeFile(t, filepath.Join(s.Root, "cpu1", "online"), "0")
	assert.False(t, s.isOnline(1))
}
