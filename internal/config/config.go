// Package config persists climate settings as a YAML file.
//
// Values absent from the file keep their defaults, so a partial file only
// overrides what it names. A missing file yields the defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/boiler-climate/internal/climate"
)

// Store loads and saves settings at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file over the defaults and validates the result.
func (s *Store) Load() (climate.Settings, error) {
	cfg := climate.DefaultSettings()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return climate.DefaultSettings(), fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return climate.DefaultSettings(), fmt.Errorf("settings %s: %w", s.path, err)
	}
	return cfg, nil
}

// Save writes the settings atomically: a temp file in the same directory is
// written, synced and renamed over the target.
func (s *Store) Save(cfg climate.Settings) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Marshal renders settings as YAML.
func Marshal(cfg climate.Settings) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return data, nil
}
