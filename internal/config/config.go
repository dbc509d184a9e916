// Package config holds the two configuration layers: environment settings
// read at start-up and the preference file edited from the settings screen.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnknownTimezone is returned when a timezone name cannot be loaded.
var ErrUnknownTimezone = errors.New("unknown timezone")

// Store manages the user's persisted preferences.
type Store struct {
	path   string
	Config Data
}

// Data represents persisted user preferences.
type Data struct {
	Timezone  string `json:"timezone"`
	LastEmail string `json:"lastEmail,omitempty"`
}

// Load reads config.json from dir, creating it with defaults if needed.
func Load(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	cfgPath := filepath.Join(dir, "config.json")

	cfg := Data{}
	if _, err := os.Stat(cfgPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		cfg = defaultConfig()
		if err := writeConfig(cfgPath, cfg); err != nil {
			return nil, err
		}
	} else {
		bytes, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(bytes, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone()
	}

	return &Store{path: cfgPath, Config: cfg}, nil
}

// Save writes the current config values to disk.
func (s *Store) Save() error {
	if s == nil {
		return errors.New("nil config store")
	}
	return writeConfig(s.path, s.Config)
}

// SetTimezone validates and stores a timezone name. It does not save.
func (s *Store) SetTimezone(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownTimezone)
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownTimezone, name)
	}
	s.Config.Timezone = name
	return nil
}

// RememberEmail records the last email used to sign in and saves.
func (s *Store) RememberEmail(email string) error {
	email = strings.TrimSpace(email)
	if s == nil || s.Config.LastEmail == email {
		return nil
	}
	s.Config.LastEmail = email
	return s.Save()
}

func writeConfig(path string, cfg Data) error {
	bytes, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaultConfig() Data {
	return Data{Timezone: defaultTimezone()}
}

func defaultTimezone() string {
	if locName := time.Now().Location().String(); locName != "Local" && locName != "" {
		return locName
	}
	return "UTC"
}

// Location returns the configured timezone Location, defaulting to UTC on error.
func (s *Store) Location() *time.Location {
	if s == nil {
		return time.UTC
	}
	if loc, err := time.LoadLocation(s.Config.Timezone); err == nil {
		return loc
	}
	return time.UTC
}
