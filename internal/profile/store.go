package profile

// Copyright (C) 2025 Felipe Figueiredo
// SPDX-License-Identifier: GPL-3.0-or-later

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

var (
	// ErrBuiltinProfile is returned when a built-in profile would be
	// overwritten or deleted.
	ErrBuiltinProfile = errors.New("built-in profiles cannot be modified")
	// ErrProfileNotFound is returned on lookup or delete of an unknown name.
	ErrProfileNotFound = errors.New("profile not found")
)

// Store holds the built-in profiles plus custom profiles loaded from disk,
// preserving insertion order, and the default-profile selection.
type Store struct {
	path        string
	builtin     []*Profile
	order       []string
	custom      map[string]*Profile
	defaultName string
}

// storeFile is the yaml shape of the profiles file.
type storeFile struct {
	Default  string        `yaml:"default,omitempty"`
	Profiles []profileFile `yaml:"profiles"`
}

type profileFile struct {
	Name   string        `yaml:"name"`
	System bool          `yaml:"system,omitempty"`
	CPUs   map[int]Entry `yaml:"cpus"`
}

// NewStore creates a store persisting to the given file path.
func NewStore(path string) *Store {
	return &Store{
		path:    path,
		builtin: builtins(),
		custom:  make(map[string]*Profile),
	}
}

// Load reads the profiles file. A missing file is not an error; the store
// then holds only the built-ins.
func (st *Store) Load() error {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", st.path)
	}
	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "parsing %s", st.path)
	}

	st.order = nil
	st.custom = make(map[string]*Profile)
	for _, pf := range file.Profiles {
		if pf.Name == "" || st.isBuiltin(pf.Name) {
			continue
		}
		if _, dup := st.custom[pf.Name]; !dup {
			st.order = append(st.order, pf.Name)
		}
		st.custom[pf.Name] = New(pf.Name, pf.System, pf.CPUs)
	}
	st.defaultName = file.Default
	return nil
}

// Save writes the custom profiles and default selection back to disk.
func (st *Store) Save() error {
	file := storeFile{Default: st.defaultName}
	for _, name := range st.order {
		p := st.custom[name]
		file.Profiles = append(file.Profiles, profileFile{
			Name:   p.name,
			System: p.system,
			CPUs:   p.entries,
		})
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return errors.Wrap(err, "encoding profiles")
	}
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(st.path))
	}
	if err := os.WriteFile(st.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", st.path)
	}
	return nil
}

func (st *Store) isBuiltin(name string) bool {
	for _, p := range st.builtin {
		if p.name == name {
			return true
		}
	}
	return false
}

// Names returns all profile names: built-ins first, then custom profiles in
// insertion order.
func (st *Store) Names() []string {
	names := make([]string, 0, len(st.builtin)+len(st.order))
	for _, p := range st.builtin {
		names = append(names, p.name)
	}
	names = append(names, st.order...)
	return names
}

// Get looks up a profile by name.
func (st *Store) Get(name string) (*Profile, bool) {
	for _, p := range st.builtin {
		if p.name == name {
			return p, true
		}
	}
	p, ok := st.custom[name]
	return p, ok
}

// Index returns the position of a name in Names() order, or -1.
func (st *Store) Index(name string) int {
	for i, n := range st.Names() {
		if n == name {
			return i
		}
	}
	return -1
}

// Create adds a custom profile. A built-in name is rejected; a same-named
// custom profile is overwritten in place, keeping its position.
func (st *Store) Create(p *Profile) error {
	if st.isBuiltin(p.name) {
		return ErrBuiltinProfile
	}
	if _, exists := st.custom[p.name]; !exists {
		st.order = append(st.order, p.name)
	}
	st.custom[p.name] = p
	return nil
}

// Delete removes a custom profile. Built-ins cannot be deleted. Removal is
// immediate and does not touch any live settings.
func (st *Store) Delete(name string) error {
	if st.isBuiltin(name) {
		return ErrBuiltinProfile
	}
	if _, ok := st.custom[name]; !ok {
		return ErrProfileNotFound
	}
	delete(st.custom, name)
	for i, n := range st.order {
		if n == name {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	if st.defaultName == name {
		st.defaultName = ""
	}
	return nil
}

// DefaultProfile returns the configured default profile name, or "".
func (st *Store) DefaultProfile() string { return st.defaultName }

// SetDefaultProfile records the default profile; the name must exist.
func (st *Store) SetDefaultProfile(name string) error {
	if _, ok := st.Get(name); !ok {
		return ErrProfileNotFound
	}
	st.defaultName = name
	return nil
}
