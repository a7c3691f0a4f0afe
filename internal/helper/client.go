// Package helper is the boundary to privileged kernel-interface access. The
// Client interface mirrors the call surface of the cpupower helper: set
// queries, online/offline transitions, and the three per-dimension write
// calls, each returning 0 on success and non-zero on failure.
package helper

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import "cpupowerctl/internal/cpufreq"

// Client is the privileged call surface. Mutating calls return an integer
// result code rather than an error: 0 is success, anything else failure. The
// reconciliation engine maps these raw results into its fixed code table.
type Client interface {
	// IsAuthorized reports whether the caller may issue mutating calls.
	IsAuthorized() bool

	CpusPresent() []int
	CpusOnline() []int
	CpusOffline() []int
	// CpusAvailable returns the CPUs a settings instance can be built for.
	CpusAvailable() []int

	// CpuAllowedOffline reports whether the CPU may be taken offline.
	// CPU 0 may not on most platforms.
	CpuAllowedOffline(cpu int) bool

	SetCpuOnline(cpu int) int
	SetCpuOffline(cpu int) int
	UpdateCpuGovernor(cpu int, governor string) int
	UpdateCpuEnergyPrefs(cpu int, pref string) int
	// UpdateCpuSettings writes the scaling bounds. Frequencies are raw kHz,
	// as the kernel interface expects.
	UpdateCpuSettings(cpu int, minKHz, maxKHz uint64) int
}

// Reader is the unprivileged read surface used to build and refresh the
// in-memory settings from live kernel state.
type Reader interface {
	// ReadCPU reads hardware limits and current values for one CPU and
	// returns a settings instance with its baseline captured from them.
	ReadCPU(cpu int) (*cpufreq.Settings, error)
	// CurrentFreq returns the currently running frequency in MHz. Display
	// only; it never touches settings state.
	CurrentFreq(cpu int) (float64, error)
}
