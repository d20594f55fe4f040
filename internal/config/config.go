// Package config handles reading and writing .programapi/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // timezones resolve without system zoneinfo

	"gopkg.in/yaml.v3"

	"github.com/europython/programapi/internal/dedupe"
	"github.com/europython/programapi/internal/normalize"
	"github.com/europython/programapi/internal/relate"
)

// Config is the top-level structure for .programapi/config.yaml.
type Config struct {
	Version           int                 `yaml:"version"`
	Event             string              `yaml:"event"`
	SiteURL           string              `yaml:"site_url"`
	Timezone          string              `yaml:"timezone"`
	Language          string              `yaml:"language"`
	Paths             PathsConfig         `yaml:"paths"`
	Policies          PoliciesConfig      `yaml:"policies"`
	PublishableStates []string            `yaml:"publishable_states"`
	Questions         normalize.Questions `yaml:"questions"`
	Download          DownloadConfig      `yaml:"download"`
	Resolver          ResolverConfig      `yaml:"resolver"`
	Archive           ArchiveConfig       `yaml:"archive"`
}

// PathsConfig holds the data directories. Relative paths are resolved
// against the project root; each holds one subdirectory per event.
type PathsConfig struct {
	Raw     string `yaml:"raw"`
	Public  string `yaml:"public"`
	Archive string `yaml:"archive"`
}

// PoliciesConfig controls how inconsistent input is handled.
type PoliciesConfig struct {
	Duplicates                  string `yaml:"duplicates"`          // FAIL | WARN | ALLOW
	DanglingReferences          string `yaml:"dangling_references"` // STRICT | LENIENT
	KeepSpeakersWithoutSessions bool   `yaml:"keep_speakers_without_sessions"`
	CheckSpeakerNames           bool   `yaml:"check_speaker_names"`
}

// DownloadConfig controls the pretalx API client.
type DownloadConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	PageSize       int    `yaml:"page_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// ResolverConfig controls relationship computation.
type ResolverConfig struct {
	Workers int `yaml:"workers"`
}

// ArchiveConfig controls pruning of archived output snapshots.
type ArchiveConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

// Dir is the project-local configuration directory.
const Dir = ".programapi"

const configFile = "config.yaml"

// Path returns the config file path for the project rooted at dir.
func Path(dir string) string {
	return filepath.Join(dir, Dir, configFile)
}

// ReadConfig reads .programapi/config.yaml from the given project directory.
// dir is the project root (not .programapi/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to .programapi/config.yaml in the given project
// directory. Creates the .programapi/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, Dir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(Path(dir), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Event:    "europython-2025",
		SiteURL:  "https://ep2025.europython.eu",
		Timezone: "Europe/Prague",
		Language: "en",
		Paths: PathsConfig{
			Raw:     "data/raw",
			Public:  "data/public",
			Archive: "data/archive",
		},
		Policies: PoliciesConfig{
			Duplicates:         "WARN",
			DanglingReferences: "STRICT",
		},
		PublishableStates: []string{"accepted", "confirmed"},
		Questions:         normalize.DefaultQuestions(),
		Download: DownloadConfig{
			BaseURL:        "https://pretalx.com/api/events",
			PageSize:       100,
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Resolver: ResolverConfig{
			Workers: 4,
		},
		Archive: ArchiveConfig{
			MaxAgeDays: 30,
		},
	}
}

// Validate checks policy values, the timezone and required fields.
func (c *Config) Validate() error {
	if c.Event == "" {
		return fmt.Errorf("event is required")
	}
	if _, err := dedupe.ParsePolicy(c.Policies.Duplicates); err != nil {
		return fmt.Errorf("policies.duplicates: %w", err)
	}
	if _, err := relate.ParseMode(c.Policies.DanglingReferences); err != nil {
		return fmt.Errorf("policies.dangling_references: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Resolver.Workers < 0 {
		return fmt.Errorf("resolver.workers must not be negative")
	}
	if c.Download.MaxRetries < 0 {
		return fmt.Errorf("download.max_retries must not be negative")
	}
	return nil
}

// Location loads the configured timezone. An empty timezone yields nil,
// which means naive timestamps are rejected.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RawDir returns the raw data directory of the configured event.
func (c *Config) RawDir(root string) string {
	return eventDir(root, c.Paths.Raw, c.Event)
}

// PublicDir returns the published output directory of the configured event.
func (c *Config) PublicDir(root string) string {
	return eventDir(root, c.Paths.Public, c.Event)
}

// ArchiveDir returns the archive directory of the configured event, or ""
// when archiving is disabled.
func (c *Config) ArchiveDir(root string) string {
	if c.Paths.Archive == "" {
		return ""
	}
	return eventDir(root, c.Paths.Archive, c.Event)
}

func eventDir(root, base, event string) string {
	if !filepath.IsAbs(base) {
		base = filepath.Join(root, base)
	}
	return filepath.Join(base, event)
}
