// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable consulted when no --config
// flag is given.
const EnvironmentVariable = "NEO_CONFIG"

// Config is the complete client configuration.
type Config struct {
	// Homeserver prefills the login form. A bare server name is
	// accepted and normalized to https:// at login.
	Homeserver string `yaml:"homeserver"`

	// StateDir holds the session descriptor, the sync cache database
	// and its sealing key. Created with mode 0700.
	StateDir string `yaml:"state_dir"`

	// Timezone is the IANA zone used to bucket messages into days and
	// format their times. Empty or "Local" means the system zone.
	Timezone string `yaml:"timezone"`

	// LogLevel is the minimum level written to the log file (debug,
	// info, warn, error).
	LogLevel string `yaml:"log_level"`

	Sync  SyncConfig  `yaml:"sync"`
	Embed EmbedConfig `yaml:"embed"`
}

// SyncConfig configures the /sync long-poll loop.
type SyncConfig struct {
	// Timeout is the server-side long-poll timeout.
	Timeout string `yaml:"timeout"`

	// TimelineLimit caps the events per room the server returns on a
	// sync.
	TimelineLimit int `yaml:"timeline_limit"`

	// HistoryLimit bounds the events kept per room in memory and in the
	// local cache.
	HistoryLimit int `yaml:"history_limit"`
}

// EmbedConfig configures link previews.
type EmbedConfig struct {
	// Enabled turns preview fetching on or off entirely.
	Enabled bool `yaml:"enabled"`

	// MaxHeight is passed to providers as the oEmbed maxheight
	// parameter.
	MaxHeight int `yaml:"max_height"`

	// ProvidersFile is an optional JSONC file of additional providers
	// merged over the built-in registry.
	ProvidersFile string `yaml:"providers_file"`

	// Timeout bounds one provider request.
	Timeout string `yaml:"timeout"`
}

// Default returns the configuration used when no file is given, and the
// base that a loaded file is merged over.
func Default() *Config {
	return &Config{
		StateDir: defaultStateDir(),
		Timezone: "Local",
		LogLevel: "info",
		Sync: SyncConfig{
			Timeout:       "30s",
			TimelineLimit: 50,
			HistoryLimit:  500,
		},
		Embed: EmbedConfig{
			Enabled:   true,
			MaxHeight: 300,
			Timeout:   "10s",
		},
	}
}

func defaultStateDir() string {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "neo")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "neo")
	}
	return filepath.Join(homeDir, ".local", "state", "neo")
}

// Load loads the file at path, or the file named by NEO_CONFIG when path
// is empty. With neither, it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		config := Default()
		config.expandVariables()
		return config, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, merged over Default().
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	config.expandVariables()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

var variablePattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func (c *Config) expandVariables() {
	c.StateDir = expandPath(c.StateDir)
	c.Embed.ProvidersFile = expandPath(c.Embed.ProvidersFile)
}

// expandPath expands ${VAR}, ${VAR:-default} and a leading ~/. Defaults
// may themselves contain one level of ${VAR}.
func expandPath(value string) string {
	if strings.HasPrefix(value, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(homeDir, value[2:])
		}
	}
	return variablePattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := variablePattern.FindStringSubmatch(match)
		if environmentValue := os.Getenv(parts[1]); environmentValue != "" {
			return environmentValue
		}
		return os.Expand(parts[2], os.Getenv)
	})
}

// Validate checks field values that yaml decoding cannot.
func (c *Config) Validate() error {
	var errs []error
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := time.ParseDuration(c.Sync.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("sync.timeout: %w", err))
	}
	if c.Sync.TimelineLimit <= 0 {
		errs = append(errs, fmt.Errorf("sync.timeline_limit must be positive, got %d", c.Sync.TimelineLimit))
	}
	if c.Sync.HistoryLimit < c.Sync.TimelineLimit {
		errs = append(errs, fmt.Errorf("sync.history_limit (%d) must be at least sync.timeline_limit (%d)", c.Sync.HistoryLimit, c.Sync.TimelineLimit))
	}
	if _, err := time.ParseDuration(c.Embed.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("embed.timeout: %w", err))
	}
	if c.Embed.MaxHeight < 0 {
		errs = append(errs, fmt.Errorf("embed.max_height must not be negative, got %d", c.Embed.MaxHeight))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return location, nil
}

// SyncTimeout returns Sync.Timeout as a duration. Validate must have
// passed; an unparseable value falls back to 30s.
func (c *Config) SyncTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Sync.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return timeout
}

// EmbedTimeout returns Embed.Timeout as a duration, falling back to 10s.
func (c *Config) EmbedTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Embed.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return timeout
}

// EnsureStateDir creates StateDir with mode 0700.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.StateDir, 0700); err != nil {
		return fmt.Errorf("config: creating state directory: %w", err)
	}
	return nil
}
