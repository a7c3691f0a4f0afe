// Package cpufreq holds the per-CPU editable state model: hardware limits,
// target settings, and change tracking against the last state read from the
// kernel.
package cpufreq

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

// GovernorUnset marks a CPU whose cpufreq driver exposes no governor list.
const GovernorUnset = -1

// Field identifies one independently applied dimension of a CPU's settings.
type Field int

const (
	FieldOnline Field = iota
	FieldFreqs
	FieldGovernor
	FieldEnergyPref
)

func (f Field) String() string {
	switch f {
	case FieldOnline:
		return "online"
	case FieldFreqs:
		return "freqs"
	case FieldGovernor:
		return "governor"
	case FieldEnergyPref:
		return "energy_pref"
	}
	return "unknown"
}

// HardwareLimits are the read-only facts about one CPU. Frequencies are MHz.
type HardwareLimits struct {
	MinFreq      float64
	MaxFreq      float64
	Governors    []string // stable kernel order, used as an index space
	EnergyPrefs  []string // empty when the platform has no EPP support
	AllowOffline bool
}

// HasGovernors reports whether the CPU exposes a governor list.
func (hw HardwareLimits) HasGovernors() bool {
	return len(hw.Governors) > 0
}

// HasEnergyPrefs reports whether energy-performance preferences are supported.
func (hw HardwareLimits) HasEnergyPrefs() bool {
	return len(hw.EnergyPrefs) > 0
}

// governorIndex returns the index of name in the governor list, or GovernorUnset.
func (hw HardwareLimits) governorIndex(name string) int {
	for i, g := range hw.Governors {
		if g == name {
			return i
		}
	}
	return GovernorUnset
}

// fields is the editable portion of a CPU's state. Kept as a plain value so a
// baseline snapshot is a single struct copy and change detection is a field
// comparison, never a separately maintained flag.
type fields struct {
	online     bool
	freqMin    float64
	freqMax    float64
	governor   int
	energyPref string
}

// Settings is the mutable editable state for one CPU plus the baseline it is
// diffed against. All frequencies are MHz.
type Settings struct {
	cpu  int
	hw   HardwareLimits
	cur  fields
	base fields
}

// NewSettings builds the state for one CPU from freshly read kernel values.
// The baseline is captured from the same values, so a new instance reports no
// changes. Frequencies outside the hardware limits are clamped on the way in.
func NewSettings(cpu int, hw HardwareLimits, online bool, freqMin, freqMax float64, governor, energyPref string) *Settings {
	s := &Settings{cpu: cpu, hw: hw}
	s.cur = fields{
		online:     online,
		freqMin:    hw.clamp(freqMin),
		freqMax:    hw.clamp(freqMax),
		governor:   hw.governorIndex(governor),
		energyPref: energyPref,
	}
	if s.cur.freqMin > s.cur.freqMax {
		s.cur.freqMax = s.cur.freqMin
	}
	s.base = s.cur
	return s
}

func (hw HardwareLimits) clamp(f float64) float64 {
	if f < hw.MinFreq {
		return hw.MinFreq
	}
	if f > hw.MaxFreq {
		return hw.MaxFreq
	}
	return f
}

// CPU returns the stable kernel id of this CPU.
func (s *Settings) CPU() int { return s.cpu }

// Hardware returns the read-only limits for this CPU.
func (s *Settings) Hardware() HardwareLimits { return s.hw }

// Online returns the target power state.
func (s *Settings) Online() bool { return s.cur.online }

// Freqs returns the target scaling bounds in MHz.
func (s *Settings) Freqs() (minFreq, maxFreq float64) {
	return s.cur.freqMin, s.cur.freqMax
}

// GovernorIndex returns the target governor as an index into
// Hardware().Governors, or GovernorUnset.
func (s *Settings) GovernorIndex() int { return s.cur.governor }

// Governor returns the target governor name, or "" when unset.
func (s *Settings) Governor() string {
	if s.cur.governor == GovernorUnset {
		return ""
	}
	return s.hw.Governors[s.cur.governor]
}

// EnergyPref returns the target energy-performance preference, or "" when
// unset or unsupported.
func (s *Settings) EnergyPref() string { return s.cur.energyPref }

// SetMinFreq sets the lower scaling bound. The value is clamped into the
// hardware limits; raising it above the current upper bound drags the upper
// bound along so the most recent edit wins.
func (s *Settings) SetMinFreq(freq float64) {
	s.cur.freqMin = s.hw.clamp(freq)
	if s.cur.freqMin > s.cur.freqMax {
		s.cur.freqMax = s.cur.freqMin
	}
}

// SetMaxFreq sets the upper scaling bound, dragging the lower bound down when
// the new value undercuts it.
func (s *Settings) SetMaxFreq(freq float64) {
	s.cur.freqMax = s.hw.clamp(freq)
	if s.cur.freqMax < s.cur.freqMin {
		s.cur.freqMin = s.cur.freqMax
	}
}

// SetFreqs sets both scaling bounds at once, as profile recall and broadcast
// do. Both values are clamped; clamping preserves their order.
func (s *Settings) SetFreqs(minFreq, maxFreq float64) {
	if minFreq > maxFreq {
		minFreq = maxFreq
	}
	s.cur.freqMin = s.hw.clamp(minFreq)
	s.cur.freqMax = s.hw.clamp(maxFreq)
}

// ScaledFreqs returns the target bounds normalized to the hardware span as
// fractions in [0,1]. This is the portable form stored in profiles.
func (s *Settings) ScaledFreqs() (minFrac, maxFrac float64) {
	span := s.hw.MaxFreq - s.hw.MinFreq
	if span <= 0 {
		return 0, 1
	}
	return (s.cur.freqMin - s.hw.MinFreq) / span, (s.cur.freqMax - s.hw.MinFreq) / span
}

// SetScaledFreqs sets the bounds from normalized fractions, mapping them into
// this CPU's own hardware span.
func (s *Settings) SetScaledFreqs(minFrac, maxFrac float64) {
	span := s.hw.MaxFreq - s.hw.MinFreq
	s.SetFreqs(s.hw.MinFreq+minFrac*span, s.hw.MinFreq+maxFrac*span)
}

// SetGovernor sets the target governor by name. Unknown names are ignored so
// that recalling a profile captured on another machine never half-fails.
func (s *Settings) SetGovernor(name string) {
	if idx := s.hw.governorIndex(name); idx != GovernorUnset {
		s.cur.governor = idx
	}
}

// SetGovernorIndex sets the target governor by position in the governor list.
func (s *Settings) SetGovernorIndex(idx int) {
	if idx >= 0 && idx < len(s.hw.Governors) {
		s.cur.governor = idx
	}
}

// SetEnergyPref sets the target energy-performance preference. A no-op when
// the platform has no EPP support or the id is not in the available list.
func (s *Settings) SetEnergyPref(id string) {
	for _, p := range s.hw.EnergyPrefs {
		if p == id {
			s.cur.energyPref = id
			return
		}
	}
}

// SetOnline sets the target power state. Whether the CPU may actually go
// offline is the caller's concern, checked against AllowOffline at apply time.
func (s *Settings) SetOnline(online bool) {
	s.cur.online = online
}

// CopyFrom copies another CPU's editable fields into this one, mapping the
// frequency bounds through the normalized scale and the governor through its
// name so the copy is meaningful across differing hardware limits. The energy
// preference is not copied; it has its own broadcast scope.
func (s *Settings) CopyFrom(src *Settings) {
	minFrac, maxFrac := src.ScaledFreqs()
	s.SetScaledFreqs(minFrac, maxFrac)
	s.SetGovernor(src.Governor())
	s.SetOnline(src.Online())
}

// ResetToBaseline discards edits, restoring the last state read from the
// kernel.
func (s *Settings) ResetToBaseline() {
	s.cur = s.base
}

// CaptureBaseline makes the current fields the new comparison point.
func (s *Settings) CaptureBaseline() {
	s.base = s.cur
}

// Changed reports whether any editable field differs from the baseline.
func (s *Settings) Changed() bool {
	return s.cur != s.base
}

// FieldChanged reports whether one specific dimension differs from the
// baseline. The apply pass uses this to skip redundant kernel writes.
func (s *Settings) FieldChanged(f Field) bool {
	switch f {
	case FieldOnline:
		return s.cur.online != s.base.online
	case FieldFreqs:
		return s.cur.freqMin != s.base.freqMin || s.cur.freqMax != s.base.freqMax
	case FieldGovernor:
		return s.cur.governor != s.base.governor
	case FieldEnergyPref:
		return s.cur.energyPref != s.base.energyPref
	}
	return false
}
