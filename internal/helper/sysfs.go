package helper

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"cpupowerctl/internal/cpufreq"
)

// sysfs file names under cpuN/, following the kernel cpufreq interface.
const (
	cpuinfoMinFile  = "cpufreq/cpuinfo_min_freq"
	cpuinfoMaxFile  = "cpufreq/cpuinfo_max_freq"
	scalingMinFile  = "cpufreq/scaling_min_freq"
	scalingMaxFile  = "cpufreq/scaling_max_freq"
	scalingCurFile  = "cpufreq/scaling_cur_freq"
	scalingGovFile  = "cpufreq/scaling_governor"
	availGovsFile   = "cpufreq/scaling_available_governors"
	energyPrefFile  = "cpufreq/energy_performance_preference"
	availPrefsFile  = "cpufreq/energy_performance_available_preferences"
	cpuOnlineFile   = "online"
	defaultSysfsCPU = "/sys/devices/system/cpu"
)

// Sysfs implements Client and Reader against the cpufreq sysfs tree. It is
// the in-process stand-in for the external privileged helper: queries work
// for any user, mutating calls require the process to run with privilege.
type Sysfs struct {
	Root string
}

// NewSysfs returns a client rooted at /sys/devices/system/cpu.
func NewSysfs() *Sysfs {
	return &Sysfs{Root: defaultSysfsCPU}
}

func (s *Sysfs) cpuPath(cpu int, file string) string {
	return filepath.Join(s.Root, fmt.Sprintf("cpu%d", cpu), file)
}

func (s *Sysfs) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Sysfs) readUint(path string) (uint64, error) {
	text, err := s.readFile(path)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", path)
	}
	return val, nil
}

// write performs one privileged sysfs write and returns the helper-style
// result code. Failures are logged here so the engine only has to track the
// numeric outcome.
func (s *Sysfs) write(path, value string) int {
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		slog.Error("sysfs write failed", slog.String("path", path), slog.String("value", value), slog.String("error", err.Error()))
		return 1
	}
	slog.Debug("sysfs write", slog.String("path", path), slog.String("value", value))
	return 0
}

// parseRangeList parses kernel CPU list syntax, e.g. "0-3,5,7-8".
func parseRangeList(text string) []int {
	var cpus []int
	text = strings.TrimSpace(text)
	if text == "" {
		return cpus
	}
	for _, part := range strings.Split(text, ",") {
		lo, hi, found := strings.Cut(part, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			continue
		}
		last := first
		if found {
			last, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				continue
			}
		}
		for cpu := first; cpu <= last; cpu++ {
			cpus = append(cpus, cpu)
		}
	}
	return cpus
}

func (s *Sysfs) readRangeList(file string) []int {
	text, err := s.readFile(filepath.Join(s.Root, file))
	if err != nil {
		slog.Debug("cpu list not readable", slog.String("file", file), slog.String("error", err.Error()))
		return nil
	}
	return parseRangeList(text)
}

// IsAuthorized reports whether mutating sysfs writes can succeed, probed by
// checking write access on CPU 0's governor file.
func (s *Sysfs) IsAuthorized() bool {
	path := s.cpuPath(0, scalingGovFile)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (s *Sysfs) CpusPresent() []int { return s.readRangeList("present") }
func (s *Sysfs) CpusOnline() []int  { return s.readRangeList("online") }
func (s *Sysfs) CpusOffline() []int { return s.readRangeList("offline") }

// CpusAvailable returns the present CPUs; offline ones are included so their
// settings can be edited and the CPU brought back online.
func (s *Sysfs) CpusAvailable() []int { return s.CpusPresent() }

// CpuAllowedOffline reports whether the kernel exposes an online switch for
// the CPU. The boot CPU has none.
func (s *Sysfs) CpuAllowedOffline(cpu int) bool {
	_, err := os.Stat(s.cpuPath(cpu, cpuOnlineFile))
	return err == nil
}

func (s *Sysfs) SetCpuOnline(cpu int) int {
	return s.write(s.cpuPath(cpu, cpuOnlineFile), "1")
}

func (s *Sysfs) SetCpuOffline(cpu int) int {
	return s.write(s.cpuPath(cpu, cpuOnlineFile), "0")
}

func (s *Sysfs) UpdateCpuGovernor(cpu int, governor string) int {
	return s.write(s.cpuPath(cpu, scalingGovFile), governor)
}

func (s *Sysfs) UpdateCpuEnergyPrefs(cpu int, pref string) int {
	return s.write(s.cpuPath(cpu, energyPrefFile), pref)
}

func (s *Sysfs) UpdateCpuSettings(cpu int, minKHz, maxKHz uint64) int {
	// Order matters when raising the floor above the old ceiling: write the
	// new ceiling first so the pair is never rejected as inverted.
	ret := s.write(s.cpuPath(cpu, scalingMaxFile), strconv.FormatUint(maxKHz, 10))
	ret += s.write(s.cpuPath(cpu, scalingMinFile), strconv.FormatUint(minKHz, 10))
	return ret
}

// isOnline reports live state from the per-CPU online file; CPUs without the
// file (the boot CPU) are always online.
func (s *Sysfs) isOnline(cpu int) bool {
	text, err := s.readFile(s.cpuPath(cpu, cpuOnlineFile))
	if err != nil {
		return true
	}
	return text == "1"
}

// ReadCPU builds a settings instance from live kernel state. An offline CPU
// has no cpufreq directory; its instance carries the last known limits of
// CPU 0 so bounds editing stays meaningful, matching helper behavior.
func (s *Sysfs) ReadCPU(cpu int) (*cpufreq.Settings, error) {
	online := s.isOnline(cpu)

	hwMin, err := s.readUint(s.cpuPath(cpu, cpuinfoMinFile))
	if err != nil {
		if !online {
			return s.readOfflineCPU(cpu)
		}
		return nil, err
	}
	hwMax, err := s.readUint(s.cpuPath(cpu, cpuinfoMaxFile))
	if err != nil {
		return nil, err
	}
	scalingMin, err := s.readUint(s.cpuPath(cpu, scalingMinFile))
	if err != nil {
		return nil, err
	}
	scalingMax, err := s.readUint(s.cpuPath(cpu, scalingMaxFile))
	if err != nil {
		return nil, err
	}

	governor, err := s.readFile(s.cpuPath(cpu, scalingGovFile))
	if err != nil {
		return nil, err
	}
	govText, err := s.readFile(s.cpuPath(cpu, availGovsFile))
	if err != nil {
		return nil, err
	}

	// EPP is optional; both files absent on platforms without the feature.
	energyPref, _ := s.readFile(s.cpuPath(cpu, energyPrefFile))
	prefText, _ := s.readFile(s.cpuPath(cpu, availPrefsFile))

	hw := cpufreq.HardwareLimits{
		MinFreq:      float64(hwMin) / 1000, // kHz -> MHz
		MaxFreq:      float64(hwMax) / 1000,
		Governors:    strings.Fields(govText),
		EnergyPrefs:  strings.Fields(prefText),
		AllowOffline: s.CpuAllowedOffline(cpu),
	}
	return cpufreq.NewSettings(cpu, hw, online,
		float64(scalingMin)/1000, float64(scalingMax)/1000, governor, energyPref), nil
}

// readOfflineCPU borrows CPU 0's hardware limits for a CPU whose cpufreq
// directory is gone.
func (s *Sysfs) readOfflineCPU(cpu int) (*cpufreq.Settings, error) {
	ref, err := s.ReadCPU(0)
	if err != nil {
		return nil, errors.Wrapf(err, "cpu%d is offline and reference limits are unavailable", cpu)
	}
	hw := ref.Hardware()
	hw.AllowOffline = s.CpuAllowedOffline(cpu)
	return cpufreq.NewSettings(cpu, hw, false, hw.MinFreq, hw.MaxFreq, "", ""), nil
}

// CurrentFreq returns the running frequency in MHz for display.
func (s *Sysfs) CurrentFreq(cpu int) (float64, error) {
	khz, err := s.readUint(s.cpuPath(cpu, scalingCurFile))
	if err != nil {
		return 0, err
	}
	return float64(khz) / 1000, nil
}
