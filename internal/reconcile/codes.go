package reconcile

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

// Fixed per-dimension failure codes. A CPU failing on two dimensions in one
// pass contributes their sum, which lands on a distinct composite code, so the
// final aggregate stays a single number the caller can look up.
const (
	codeGovernorFailed = -11
	codeEnergyFailed   = -12
	codeFreqsFailed    = -13
)

var resultMessages = map[int]string{
	codeGovernorFailed:                     "Setting governor failed.",
	codeEnergyFailed:                       "Setting energy preferences failed.",
	codeFreqsFailed:                        "Setting frequencies failed.",
	codeGovernorFailed + codeEnergyFailed:  "Setting governor and energy preferences failed.",
	codeGovernorFailed + codeFreqsFailed:   "Setting governor and frequencies failed.",
	codeFreqsFailed + codeEnergyFailed:     "Setting frequencies and energy preferences failed.",
}

// ResultMessage maps an aggregate apply result to a human-readable message.
// Only exact table entries are recognized; any other non-zero value, such as
// all three dimensions failing at once, is reported as an unknown error.
func ResultMessage(code int) string {
	if code == 0 {
		return "Settings applied."
	}
	if msg, ok := resultMessages[code]; ok {
		return msg
	}
	return "Unknown error occurred."
}
