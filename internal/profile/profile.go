// Package profile provides named bundles of per-CPU target settings and their
// on-disk store.
package profile

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

// Entry is one CPU's slice of a profile. Frequency bounds are stored
// normalized to the source CPU's hardware span as fractions in [0,1], so
// recall maps them into the target CPU's own limits.
type Entry struct {
	FreqMinScaled float64 `yaml:"fmin"`
	FreqMaxScaled float64 `yaml:"fmax"`
	Governor      string  `yaml:"governor"`
	Online        bool    `yaml:"online"`
}

// Profile is a named, immutable-by-handle capture of settings for a set of
// CPUs. Built-in profiles carry a single entry that applies to every CPU.
type Profile struct {
	name    string
	system  bool
	custom  bool
	entries map[int]Entry
	all     *Entry
}

// New creates a user or system profile from explicit per-CPU entries.
func New(name string, system bool, entries map[int]Entry) *Profile {
	return &Profile{name: name, system: system, custom: true, entries: entries}
}

func (p *Profile) Name() string { return p.name }

// IsCustom reports whether the profile is user- or system-defined; built-ins
// are not custom and can be neither edited nor deleted.
func (p *Profile) IsCustom() bool { return p.custom }

// IsSystem distinguishes system profiles from user ones among custom
// profiles.
func (p *Profile) IsSystem() bool { return p.system }

// EntryFor returns the entry to recall on the given CPU. Built-ins match
// every CPU; custom profiles only the CPUs they were captured from.
func (p *Profile) EntryFor(cpu int) (Entry, bool) {
	if p.all != nil {
		return *p.all, true
	}
	entry, ok := p.entries[cpu]
	return entry, ok
}

// Entries returns a copy of the explicit per-CPU entries.
func (p *Profile) Entries() map[int]Entry {
	out := make(map[int]Entry, len(p.entries))
	for cpu, entry := range p.entries {
		out[cpu] = entry
	}
	return out
}

// builtins returns the fixed profiles that are always present. Their governor
// may not exist on a given platform; recall skips it silently there.
func builtins() []*Profile {
	return []*Profile{
		{
			name: "Performance",
			all:  &Entry{FreqMinScaled: 0, FreqMaxScaled: 1, Governor: "performance", Online: true},
		},
		{
			name: "Balanced",
			all:  &Entry{FreqMinScaled: 0, FreqMaxScaled: 1, Governor: "powersave", Online: true},
		},
	}
}
