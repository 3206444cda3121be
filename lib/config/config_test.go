// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "neo.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if config.Sync.TimelineLimit != 50 {
		t.Errorf("timeline_limit = %d, want 50", config.Sync.TimelineLimit)
	}
	if config.Embed.MaxHeight != 300 {
		t.Errorf("max_height = %d, want 300", config.Embed.MaxHeight)
	}
	if config.SyncTimeout() != 30*time.Second {
		t.Errorf("SyncTimeout() = %v, want 30s", config.SyncTimeout())
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")

	config, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.StateDir != "/tmp/xdg-state/neo" {
		t.Errorf("state_dir = %q, want /tmp/xdg-state/neo", config.StateDir)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := writeConfig(t, `
homeserver: https://example.org
timezone: UTC
sync:
  timeline_limit: 20
`)
	t.Setenv(EnvironmentVariable, path)

	config, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Homeserver != "https://example.org" {
		t.Errorf("homeserver = %q, want https://example.org", config.Homeserver)
	}
	if config.Sync.TimelineLimit != 20 {
		t.Errorf("timeline_limit = %d, want 20", config.Sync.TimelineLimit)
	}
	// Unset fields keep their defaults.
	if config.Sync.Timeout != "30s" {
		t.Errorf("sync.timeout = %q, want default 30s", config.Sync.Timeout)
	}
	location, err := config.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if location != time.UTC {
		t.Errorf("Location() = %v, want UTC", location)
	}
}

func TestExplicitPathWinsOverEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, filepath.Join(t.TempDir(), "missing.yaml"))
	path := writeConfig(t, "homeserver: https://flag.example\n")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Homeserver != "https://flag.example" {
		t.Errorf("homeserver = %q, want https://flag.example", config.Homeserver)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("NEO_TEST_ROOT", "/srv/neo")
	t.Setenv("NEO_TEST_UNSET", "")
	path := writeConfig(t, `
state_dir: ${NEO_TEST_ROOT}/state
embed:
  providers_file: ${NEO_TEST_UNSET:-/etc/neo}/providers.jsonc
`)

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if config.StateDir != "/srv/neo/state" {
		t.Errorf("state_dir = %q, want /srv/neo/state", config.StateDir)
	}
	if config.Embed.ProvidersFile != "/etc/neo/providers.jsonc" {
		t.Errorf("providers_file = %q, want /etc/neo/providers.jsonc", config.Embed.ProvidersFile)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bad timezone", content: "timezone: Mars/Olympus\n", want: "timezone"},
		{name: "bad timeout", content: "sync:\n  timeout: soon\n", want: "sync.timeout"},
		{name: "zero limit", content: "sync:\n  timeline_limit: 0\n", want: "timeline_limit"},
		{name: "history below timeline", content: "sync:\n  history_limit: 10\n", want: "history_limit"},
		{name: "bad log level", content: "log_level: loud\n", want: "log_level"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, test.content))
			if err == nil {
				t.Fatal("LoadFile succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error %q does not mention %q", err, test.want)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile of a missing file succeeded")
	}
}
