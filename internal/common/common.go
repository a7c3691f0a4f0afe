// Package common provides application-wide constants and shared state
// loading for the subcommands.
package common

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"cpupowerctl/internal/appconf"
	"cpupowerctl/internal/profile"
)

// AppName is the name of the application.
const AppName = "cpupowerctl"

// LoadState reads the application config and profile store from their
// default locations. Missing files yield defaults and an empty store.
func LoadState() (appconf.Config, *profile.Store, error) {
	cfg, err := appconf.Load(appconf.Path())
	if err != nil {
		return cfg, nil, err
	}
	store := profile.NewStore(appconf.ProfilesPath())
	if err := store.Load(); err != nil {
		return cfg, store, err
	}
	return cfg, store, nil
}
