// env_config_test.go: Tests for environment variable configuration
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	config, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv failed: %v", err)
	}
	if config.InitialState != StateRecOn {
		t.Errorf("InitialState = %s, want REC_ON", config.InitialState)
	}
	if config.RingCapacity != 256 {
		t.Errorf("RingCapacity = %d, want 256", config.RingCapacity)
	}
	if !config.Audit.Enabled {
		t.Error("Expected audit enabled by default in daemon configuration")
	}
}

func TestLoadConfigFromEnvValues(t *testing.T) {
	t.Setenv("WARDEN_INITIAL_STATE", "rec-off")
	t.Setenv("WARDEN_RING_CAPACITY", "1024")
	t.Setenv("WARDEN_AUDIT_ENABLED", "false")
	t.Setenv("WARDEN_AUDIT_OUTPUT_FILE", "/var/log/warden/denied.db")
	t.Setenv("WARDEN_AUDIT_BUFFER_SIZE", "128")
	t.Setenv("WARDEN_AUDIT_FLUSH_INTERVAL", "2s")

	config, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv failed: %v", err)
	}
	if config.InitialState != StateRecOff {
		t.Errorf("InitialState = %s, want REC_OFF", config.InitialState)
	}
	if config.RingCapacity != 1024 {
		t.Errorf("RingCapacity = %d, want 1024", config.RingCapacity)
	}
	if config.Audit.Enabled {
		t.Error("Expected audit disabled")
	}
	if config.Audit.OutputFile != "/var/log/warden/denied.db" {
		t.Errorf("OutputFile = %s", config.Audit.OutputFile)
	}
	if config.Audit.BufferSize != 128 {
		t.Errorf("BufferSize = %d, want 128", config.Audit.BufferSize)
	}
	if config.Audit.FlushInterval != 2*time.Second {
		t.Errorf("FlushInterval = %v, want 2s", config.Audit.FlushInterval)
	}
}

func TestLoadEnvOverlayTracksExplicitValues(t *testing.T) {
	t.Setenv("WARDEN_AUDIT_ENABLED", "")
	t.Setenv("WARDEN_INITIAL_STATE", "")

	overlay, err := loadEnvOverlay()
	if err != nil {
		t.Fatalf("loadEnvOverlay failed: %v", err)
	}
	if overlay.auditEnabledSet || overlay.initialStateSet {
		t.Errorf("Unset variables marked explicit: audit=%v state=%v",
			overlay.auditEnabledSet, overlay.initialStateSet)
	}

	t.Setenv("WARDEN_AUDIT_ENABLED", "false")
	overlay, err = loadEnvOverlay()
	if err != nil {
		t.Fatalf("loadEnvOverlay failed: %v", err)
	}
	if !overlay.auditEnabledSet || overlay.Audit.Enabled {
		t.Errorf("Explicit WARDEN_AUDIT_ENABLED=false lost: set=%v enabled=%v",
			overlay.auditEnabledSet, overlay.Audit.Enabled)
	}
}

func TestLoadConfigFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad state", "WARDEN_INITIAL_STATE", "enforce-everything"},
		{"bad capacity", "WARDEN_RING_CAPACITY", "not-a-number"},
		{"negative capacity", "WARDEN_RING_CAPACITY", "-8"},
		{"bad flush interval", "WARDEN_AUDIT_FLUSH_INTERVAL", "five seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadConfigFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestParseEnvBool(t *testing.T) {
	trueValues := []string{"true", "1", "yes", "on", "enabled", "TRUE", "Yes"}
	for _, v := range trueValues {
		if !parseEnvBool(v) {
			t.Errorf("parseEnvBool(%q) = false, want true", v)
		}
	}
	falseValues := []string{"false", "0", "no", "off", "disabled", "anything"}
	for _, v := range falseValues {
		if parseEnvBool(v) {
			t.Errorf("parseEnvBool(%q) = true, want false", v)
		}
	}
}
