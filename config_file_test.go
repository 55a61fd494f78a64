// config_file_test.go: Configuration file loading tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeConfigFile(t, "warden.yaml", `
initial_state: rec-on
ring_capacity: 512
audit:
  enabled: true
  output_file: /var/log/warden/denied.db
  buffer_size: 32
audit_flush_interval: 3s
protected_paths:
  - /etc/shadow
  - /srv/data
`)

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if fc.InitialState != "rec-on" {
		t.Errorf("InitialState = %s", fc.InitialState)
	}
	if fc.RingCapacity != 512 {
		t.Errorf("RingCapacity = %d, want 512", fc.RingCapacity)
	}
	if fc.Audit.Enabled == nil || !*fc.Audit.Enabled || fc.Audit.OutputFile != "/var/log/warden/denied.db" {
		t.Errorf("Audit = %+v", fc.Audit)
	}
	if len(fc.ProtectedPaths) != 2 || fc.ProtectedPaths[0] != "/etc/shadow" {
		t.Errorf("ProtectedPaths = %v", fc.ProtectedPaths)
	}

	config, err := fc.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig failed: %v", err)
	}
	if config.InitialState != StateRecOn {
		t.Errorf("InitialState = %s, want REC_ON", config.InitialState)
	}
	if config.Audit.FlushInterval != 3*time.Second {
		t.Errorf("FlushInterval = %v, want 3s", config.Audit.FlushInterval)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeConfigFile(t, "warden.json", `{
  "initial_state": "off",
  "ring_capacity": 64,
  "audit": {"enabled": false},
  "protected_paths": ["/etc/shadow"]
}`)

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	config, err := fc.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig failed: %v", err)
	}
	if config.InitialState != StateOff {
		t.Errorf("InitialState = %s, want OFF", config.InitialState)
	}
	if config.RingCapacity != 64 {
		t.Errorf("RingCapacity = %d, want 64", config.RingCapacity)
	}

	// An explicit "off" must survive WithDefaults.
	if got := config.WithDefaults().InitialState; got != StateOff {
		t.Errorf("WithDefaults overrode explicit OFF with %s", got)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := writeConfigFile(t, "broken.yaml", "initial_state: [not\nvalid yaml")
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}

	path = writeConfigFile(t, "broken.json", "{not json")
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestToConfigInvalidValues(t *testing.T) {
	fc := &FileConfig{InitialState: "superenforce"}
	if _, err := fc.ToConfig(); err == nil {
		t.Error("Expected error for unknown initial state")
	}

	fc = &FileConfig{FlushIntervalStr: "every day"}
	if _, err := fc.ToConfig(); err == nil {
		t.Error("Expected error for unparsable flush interval")
	}
}

func TestToConfigAuditEnabledTriState(t *testing.T) {
	fc := &FileConfig{}
	config, err := fc.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig failed: %v", err)
	}
	if config.auditEnabledSet {
		t.Error("Absent audit.enabled key marked as explicitly set")
	}

	off := false
	fc = &FileConfig{Audit: FileAuditConfig{Enabled: &off}}
	config, err = fc.ToConfig()
	if err != nil {
		t.Fatalf("ToConfig failed: %v", err)
	}
	if !config.auditEnabledSet || config.Audit.Enabled {
		t.Errorf("Explicit audit.enabled=false lost: set=%v enabled=%v",
			config.auditEnabledSet, config.Audit.Enabled)
	}
}

func TestRegisterProtectedPaths(t *testing.T) {
	m := newTestMonitor(t, StateRecOn)

	fc := &FileConfig{ProtectedPaths: []string{"/etc/shadow", "/srv/data"}}
	if err := fc.RegisterProtectedPaths(m, testPassword); err != nil {
		t.Fatalf("RegisterProtectedPaths failed: %v", err)
	}

	entries, err := m.ManagePath(PathList, "", testPassword)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 registered paths, got %d", len(entries))
	}

	// Re-registration skips entries already present.
	if err := fc.RegisterProtectedPaths(m, testPassword); err != nil {
		t.Fatalf("Idempotent registration failed: %v", err)
	}

	// Unresolvable paths are collected into one error.
	fc = &FileConfig{ProtectedPaths: []string{"/no/such/path"}}
	if err := fc.RegisterProtectedPaths(m, testPassword); err == nil {
		t.Error("Expected error for unresolvable protected path")
	}
}
