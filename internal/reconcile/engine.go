// Package reconcile turns edited per-CPU settings into the minimal ordered
// sequence of privileged helper calls and aggregates their result codes.
package reconcile

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"

	"cpupowerctl/internal/cpufreq"
	"cpupowerctl/internal/helper"
	"cpupowerctl/internal/profile"
)

// ErrNotAuthorized is returned by Apply when the helper refuses mutating
// calls. No settings are touched in that case.
var ErrNotAuthorized = errors.New("not authorized to update CPU settings")

// Engine owns the per-CPU settings instances and the two broadcast toggles,
// and runs the apply pass against the privileged helper.
type Engine struct {
	client helper.Client
	reader helper.Reader

	cpus     []int
	settings map[int]*cpufreq.Settings

	broadcast    bool // "apply to all": edits mirror to every CPU
	energyPerCPU bool // energy preference scope, independent of broadcast
	energyAvail  bool
}

// New creates an engine over the given helper client and reader. Call Load
// before anything else.
func New(client helper.Client, reader helper.Reader) *Engine {
	return &Engine{
		client:   client,
		reader:   reader,
		settings: make(map[int]*cpufreq.Settings),
	}
}

// Load reads settings for every available CPU, replacing any previous state
// and capturing fresh baselines.
func (e *Engine) Load() error {
	cpus := e.client.CpusAvailable()
	sort.Ints(cpus)

	settings := make(map[int]*cpufreq.Settings, len(cpus))
	for _, cpu := range cpus {
		s, err := e.reader.ReadCPU(cpu)
		if err != nil {
			return errors.Wrapf(err, "reading cpu%d", cpu)
		}
		settings[cpu] = s
	}
	e.cpus = cpus
	e.settings = settings
	e.energyAvail = false
	if len(cpus) > 0 {
		e.energyAvail = settings[cpus[0]].Hardware().HasEnergyPrefs()
	}
	return nil
}

// CPUs returns the managed CPU ids in ascending order.
func (e *Engine) CPUs() []int { return e.cpus }

// Settings returns the settings instance for one CPU.
func (e *Engine) Settings(cpu int) (*cpufreq.Settings, bool) {
	s, ok := e.settings[cpu]
	return s, ok
}

// EnergyPrefAvailable reports whether the platform supports energy
// preferences at all, decided from the first CPU at load time.
func (e *Engine) EnergyPrefAvailable() bool { return e.energyAvail }

// Broadcast reports the "apply to all" toggle.
func (e *Engine) Broadcast() bool { return e.broadcast }

// SetBroadcast flips the "apply to all" toggle. Enabling it mirrors the
// active CPU's current fields onto every other CPU immediately, so the visible
// state matches what a subsequent apply would write.
func (e *Engine) SetBroadcast(on bool, activeCPU int) {
	e.broadcast = on
	if on {
		e.mirrorFrom(activeCPU)
	}
}

// SetEnergyPerCPU selects per-CPU (true) or global (false) scope for energy
// preference edits.
func (e *Engine) SetEnergyPerCPU(perCPU bool) { e.energyPerCPU = perCPU }

func (e *Engine) mirrorFrom(cpu int) {
	src, ok := e.settings[cpu]
	if !ok {
		return
	}
	for _, other := range e.cpus {
		if other != cpu {
			e.settings[other].CopyFrom(src)
		}
	}
}

// SetMinFreq edits the lower bound on one CPU, mirroring to all CPUs when
// broadcast is on. Frequencies are MHz.
func (e *Engine) SetMinFreq(cpu int, freq float64) {
	if s, ok := e.settings[cpu]; ok {
		s.SetMinFreq(freq)
		if e.broadcast {
			e.mirrorFrom(cpu)
		}
	}
}

// SetFreqs edits both bounds at once, mirroring to all CPUs when broadcast
// is on.
func (e *Engine) SetFreqs(cpu int, minFreq, maxFreq float64) {
	if s, ok := e.settings[cpu]; ok {
		s.SetFreqs(minFreq, maxFreq)
		if e.broadcast {
			e.mirrorFrom(cpu)
		}
	}
}

// SetMaxFreq edits the upper bound, mirroring when broadcast is on.
func (e *Engine) SetMaxFreq(cpu int, freq float64) {
	if s, ok := e.settings[cpu]; ok {
		s.SetMaxFreq(freq)
		if e.broadcast {
			e.mirrorFrom(cpu)
		}
	}
}

// SetGovernor edits the governor, mirroring when broadcast is on.
func (e *Engine) SetGovernor(cpu int, name string) {
	if s, ok := e.settings[cpu]; ok {
		s.SetGovernor(name)
		if e.broadcast {
			e.mirrorFrom(cpu)
		}
	}
}

// SetOnline edits the target power state, mirroring when broadcast is on.
func (e *Engine) SetOnline(cpu int, online bool) {
	if s, ok := e.settings[cpu]; ok {
		s.SetOnline(online)
		if e.broadcast {
			e.mirrorFrom(cpu)
		}
	}
}

// SetEnergyPref edits the energy preference. Its scope is the independent
// per-CPU/global toggle, not the main broadcast: global scope writes the same
// preference to every CPU.
func (e *Engine) SetEnergyPref(cpu int, pref string) {
	if e.energyPerCPU {
		if s, ok := e.settings[cpu]; ok {
			s.SetEnergyPref(pref)
		}
		return
	}
	for _, c := range e.cpus {
		e.settings[c].SetEnergyPref(pref)
	}
}

// Changed reports whether any CPU differs from its baseline.
func (e *Engine) Changed() bool {
	for _, cpu := range e.cpus {
		if e.settings[cpu].Changed() {
			return true
		}
	}
	return false
}

// ChangedCPUs returns the CPUs that would be touched by an apply pass.
func (e *Engine) ChangedCPUs() []int {
	var changed []int
	for _, cpu := range e.cpus {
		if e.settings[cpu].Changed() {
			changed = append(changed, cpu)
		}
	}
	return changed
}

// ResetAll restores every CPU to its baseline, as when a profile selection is
// cleared.
func (e *Engine) ResetAll() {
	for _, cpu := range e.cpus {
		e.settings[cpu].ResetToBaseline()
	}
}

// Apply runs the reconciliation pass: for each changed CPU, in id order, the
// online transition first, then bounds, governor, and energy preference, each
// only when that dimension actually changed and only while the target state is
// online. The returned int is the arithmetic sum of all per-CPU result codes;
// 0 means every attempted write succeeded. Settings are refreshed from live
// state afterward regardless of outcome.
func (e *Engine) Apply() (int, error) {
	if !e.client.IsAuthorized() {
		return 0, ErrNotAuthorized
	}

	present := mapset.NewSet(e.client.CpusPresent()...)
	online := mapset.NewSet(e.client.CpusOnline()...)
	offline := mapset.NewSet(e.client.CpusOffline()...)

	ret := 0
	for _, cpu := range e.cpus {
		s := e.settings[cpu]
		if !s.Changed() {
			continue
		}
		slog.Debug("applying cpu settings", slog.Int("cpu", cpu))

		ret += e.applyOnlineState(s, present, online, offline)

		if !s.Online() {
			// An offline CPU accepts no cpufreq writes.
			continue
		}
		if s.FieldChanged(cpufreq.FieldFreqs) {
			ret += e.applyFreqs(s)
		}
		if s.FieldChanged(cpufreq.FieldGovernor) {
			ret += e.applyGovernor(s)
		}
		if s.FieldChanged(cpufreq.FieldEnergyPref) && e.energyAvail {
			ret += e.applyEnergyPref(s)
		}
	}

	if err := e.Refresh(); err != nil {
		slog.Error("post-apply refresh failed", slog.String("error", err.Error()))
	}
	return ret, nil
}

// applyOnlineState issues an online/offline transition only when live state
// disagrees with the target. Taking a CPU offline requires the helper to allow
// it; a disallowed request is skipped, not failed.
func (e *Engine) applyOnlineState(s *cpufreq.Settings, present, online, offline mapset.Set[int]) int {
	cpu := s.CPU()
	if !present.Contains(cpu) {
		return 0
	}
	if s.Online() && offline.Contains(cpu) {
		return e.client.SetCpuOnline(cpu)
	}
	if !s.Online() && online.Contains(cpu) {
		if e.client.CpuAllowedOffline(cpu) {
			return e.client.SetCpuOffline(cpu)
		}
		slog.Debug("cpu not allowed offline, skipping", slog.Int("cpu", cpu))
	}
	return 0
}

func (e *Engine) applyFreqs(s *cpufreq.Settings) int {
	minFreq, maxFreq := s.Freqs()
	ret := e.client.UpdateCpuSettings(s.CPU(), uint64(minFreq*1000), uint64(maxFreq*1000))
	if ret != 0 {
		slog.Error("setting frequencies failed", slog.Int("cpu", s.CPU()), slog.Int("ret", ret))
		return codeFreqsFailed
	}
	return 0
}

func (e *Engine) applyGovernor(s *cpufreq.Settings) int {
	gov := s.Governor()
	if gov == "" {
		slog.Debug("no governor set, skipping", slog.Int("cpu", s.CPU()))
		return 0
	}
	ret := e.client.UpdateCpuGovernor(s.CPU(), gov)
	if ret != 0 {
		slog.Error("setting governor failed", slog.Int("cpu", s.CPU()), slog.String("governor", gov), slog.Int("ret", ret))
		return codeGovernorFailed
	}
	return 0
}

func (e *Engine) applyEnergyPref(s *cpufreq.Settings) int {
	pref := s.EnergyPref()
	if pref == "" {
		return 0
	}
	ret := e.client.UpdateCpuEnergyPrefs(s.CPU(), pref)
	if ret != 0 {
		slog.Error("setting energy preference failed", slog.Int("cpu", s.CPU()), slog.String("pref", pref), slog.Int("ret", ret))
		return codeEnergyFailed
	}
	return 0
}

// Refresh re-reads every CPU from live state, recapturing baselines. After a
// partial failure this leaves Changed true exactly on the CPUs whose live
// state still differs from what was requested.
func (e *Engine) Refresh() error {
	for _, cpu := range e.cpus {
		s, err := e.reader.ReadCPU(cpu)
		if err != nil {
			return errors.Wrapf(err, "refreshing cpu%d", cpu)
		}
		e.settings[cpu] = s
	}
	return nil
}

// CaptureProfile snapshots the current target settings of every CPU into a
// named profile, frequencies in the portable normalized scale and governors by
// name.
func (e *Engine) CaptureProfile(name string, system bool) *profile.Profile {
	entries := make(map[int]profile.Entry, len(e.cpus))
	for _, cpu := range e.cpus {
		s := e.settings[cpu]
		minFrac, maxFrac := s.ScaledFreqs()
		entries[cpu] = profile.Entry{
			FreqMinScaled: minFrac,
			FreqMaxScaled: maxFrac,
			Governor:      s.Governor(),
			Online:        s.Online(),
		}
	}
	return profile.New(name, system, entries)
}

// ApplyProfile loads a profile's entries into the settings. Any edits staged
// before the recall are discarded, and broadcast is switched off since a
// profile carries independent per-CPU values. CPUs the profile does not
// mention stay at their baseline; a governor the target CPU does not support
// is skipped silently.
func (e *Engine) ApplyProfile(p *profile.Profile) {
	e.ResetAll()
	e.broadcast = false
	for _, cpu := range e.cpus {
		entry, ok := p.EntryFor(cpu)
		if !ok {
			continue
		}
		s := e.settings[cpu]
		s.SetScaledFreqs(entry.FreqMinScaled, entry.FreqMaxScaled)
		s.SetGovernor(entry.Governor)
		s.SetOnline(entry.Online)
	}
}
