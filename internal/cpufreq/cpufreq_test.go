// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

package cpufreq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() HardwareLimits {
	return HardwareLimits{
		MinFreq:      800,
		MaxFreq:      3200,
		Governors:    []string{"performance", "powersave", "schedutil"},
		EnergyPrefs:  []string{"default", "performance", "balance_power", "power"},
		AllowOffline: true,
	}
}

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	s := NewSettings(1, testLimits(), true, 800, 3200, "powersave", "default")
	require.False(t, s.Changed())
	return s
}

func TestClamping(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(s *Settings)
		wantMin float64
		wantMax float64
	}{
		{
			name:    "min below hardware floor",
			edit:    func(s *Settings) { s.SetMinFreq(100) },
			wantMin: 800,
			wantMax: 3200,
		},
		{
			name:    "max above hardware ceiling",
			edit:    func(s *Settings) { s.SetMaxFreq(9999) },
			wantMin: 800,
			wantMax: 3200,
		},
		{
			name: "min raised above max drags max up",
			edit: func(s *Settings) {
				s.SetMaxFreq(1200)
				s.SetMinFreq(2000)
			},
			wantMin: 2000,
			wantMax: 2000,
		},
		{
			name: "max lowered below min drags min down",
			edit: func(s *Settings) {
				s.SetMinFreq(2400)
				s.SetMaxFreq(1000)
			},
			wantMin: 1000,
			wantMax: 1000,
		},
		{
			name:    "bulk set clamps both bounds",
			edit:    func(s *Settings) { s.SetFreqs(100, 9999) },
			wantMin: 800,
			wantMax: 3200,
		},
		{
			name:    "bulk set with inverted pair",
			edit:    func(s *Settings) { s.SetFreqs(2400, 1200) },
			wantMin: 1200,
			wantMax: 1200,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSettings(t)
			tt.edit(s)
			gotMin, gotMax := s.Freqs()
			assert.Equal(t, tt.wantMin, gotMin)
			assert.Equal(t, tt.wantMax, gotMax)
			hw := s.Hardware()
			assert.GreaterOrEqual(t, gotMin, hw.MinFreq)
			assert.LessOrEqual(t, gotMin, gotMax)
			assert.LessOrEqual(t, gotMax, hw.MaxFreq)
		})
	}
}

func TestChangeDetectionRoundTrip(t *testing.T) {
	s := newTestSettings(t)

	s.CaptureBaseline()
	assert.False(t, s.Changed())

	s.SetMinFreq(1200)
	assert.True(t, s.Changed())
	assert.True(t, s.FieldChanged(FieldFreqs))
	assert.False(t, s.FieldChanged(FieldGovernor))

	// reverting the edit by hand clears the derived flag again
	s.SetMinFreq(800)
	assert.False(t, s.Changed())
}

func TestFieldChanged(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(s *Settings)
		field Field
	}{
		{"online", func(s *Settings) { s.SetOnline(false) }, FieldOnline},
		{"freqs", func(s *Settings) { s.SetMaxFreq(2000) }, FieldFreqs},
		{"governor", func(s *Settings) { s.SetGovernor("performance") }, FieldGovernor},
		{"energy_pref", func(s *Settings) { s.SetEnergyPref("power") }, FieldEnergyPref},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSettings(t)
			tt.edit(s)
			for _, f := range []Field{FieldOnline, FieldFreqs, FieldGovernor, FieldEnergyPref} {
				assert.Equal(t, f == tt.field, s.FieldChanged(f), "field %s", f)
			}
		})
	}
}

func TestResetToBaseline(t *testing.T) {
	s := newTestSettings(t)
	s.SetFreqs(1000, 2000)
	s.SetGovernor("performance")
	s.SetOnline(false)
	require.True(t, s.Changed())

	s.ResetToBaseline()
	assert.False(t, s.Changed())
	gotMin, gotMax := s.Freqs()
	assert.Equal(t, 800.0, gotMin)
	assert.Equal(t, 3200.0, gotMax)
	assert.Equal(t, "powersave", s.Governor())
	assert.True(t, s.Online())
}

func TestSetGovernorUnknownIsNoop(t *testing.T) {
	s := newTestSettings(t)
	s.SetGovernor("ondemand")
	assert.Equal(t, "powersave", s.Governor())
	assert.False(t, s.Changed())
}

func TestSetEnergyPrefUnsupported(t *testing.T) {
	hw := testLimits()
	hw.EnergyPrefs = nil
	s := NewSettings(0, hw, true, 800, 3200, "powersave", "")
	s.SetEnergyPref("power")
	assert.Equal(t, "", s.EnergyPref())
	assert.False(t, s.Changed())
}

func TestScaledFreqsPortability(t *testing.T) {
	// capture on CPU A with limits [800, 3200]
	a := NewSettings(0, testLimits(), true, 800, 3200, "powersave", "default")
	a.SetFreqs(2000, 2000) // midpoint
	minFrac, maxFrac := a.ScaledFreqs()
	assert.InDelta(t, 0.5, minFrac, 1e-9)
	assert.InDelta(t, 0.5, maxFrac, 1e-9)

	// recall on CPU B with limits [1000, 2800]
	hwB := HardwareLimits{MinFreq: 1000, MaxFreq: 2800, Governors: []string{"powersave"}}
	b := NewSettings(1, hwB, true, 1000, 2800, "powersave", "")
	b.SetScaledFreqs(minFrac, maxFrac)
	gotMin, gotMax := b.Freqs()
	assert.InDelta(t, 1900, gotMin, 0.01) // B's midpoint
	assert.InDelta(t, 1900, gotMax, 0.01)
	assert.GreaterOrEqual(t, gotMin, hwB.MinFreq)
	assert.LessOrEqual(t, gotMax, hwB.MaxFreq)
}

func TestScaledFreqsDegenerateSpan(t *testing.T) {
	hw := HardwareLimits{MinFreq: 2000, MaxFreq: 2000}
	s := NewSettings(0, hw, true, 2000, 2000, "", "")
	minFrac, maxFrac := s.ScaledFreqs()
	assert.Equal(t, 0.0, minFrac)
	assert.Equal(t, 1.0, maxFrac)
}

func TestCopyFrom(t *testing.T) {
	src := newTestSettings(t)
	src.SetFreqs(1600, 2400)
	src.SetGovernor("performance")
	src.SetEnergyPref("power")
	src.SetOnline(false)

	dst := NewSettings(2, testLimits(), true, 800, 3200, "powersave", "default")
	dst.CopyFrom(src)

	gotMin, gotMax := dst.Freqs()
	assert.InDelta(t, 1600, gotMin, 0.01)
	assert.InDelta(t, 2400, gotMax, 0.01)
	assert.Equal(t, "performance", dst.Governor())
	assert.False(t, dst.Online())
	// energy preference has its own broadcast scope and is not copied
	assert.Equal(t, "default", dst.EnergyPref())
}
