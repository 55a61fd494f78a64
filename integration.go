// integration.go: Unified Integration Layer for Warden + FlashFlags
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package warden provides unified daemon configuration combining:
// - FlashFlags ultra-fast command-line parsing
// - WARDEN_* environment variables
// - YAML/JSON configuration files
// with precedence flags > environment > file > defaults.

package warden

import (
	"fmt"
	"os"

	flashflags "github.com/agilira/flash-flags"
)

// ConfigManager combines all configuration sources for the daemon binary.
type ConfigManager struct {
	flags *flashflags.FlagSet

	appName        string
	appDescription string
	appVersion     string
}

// NewConfigManager creates a unified configuration manager.
func NewConfigManager(appName string) *ConfigManager {
	cm := &ConfigManager{
		flags:   flashflags.New(appName),
		appName: appName,
	}

	cm.flags.String("config", "", "Path to a YAML or JSON configuration file")
	cm.flags.String("state", "", "Initial enforcement state (off|on|rec-off|rec-on)")
	cm.flags.String("audit-output", "", "Audit sink path (.db selects the SQLite backend)")
	cm.flags.Int("ring-capacity", 0, "Denial-event ring capacity (power of 2)")
	cm.flags.Duration("audit-flush-interval", 0, "Audit background flush period")
	cm.flags.String("password-file", "", "File holding the administration password")

	return cm
}

// SetDescription sets the application description for help text.
func (cm *ConfigManager) SetDescription(description string) *ConfigManager {
	cm.appDescription = description
	cm.flags.SetDescription(description)
	return cm
}

// SetVersion sets the application version for help text.
func (cm *ConfigManager) SetVersion(version string) *ConfigManager {
	cm.appVersion = version
	cm.flags.SetVersion(version)
	return cm
}

// Parse parses command-line arguments.
func (cm *ConfigManager) Parse(args []string) error {
	if err := cm.flags.Parse(args); err != nil {
		return fmt.Errorf("failed to parse command-line flags: %w", err)
	}
	return nil
}

// ParseArgs is a convenience method that parses os.Args[1:].
func (cm *ConfigManager) ParseArgs() error {
	return cm.Parse(os.Args[1:])
}

// PrintUsage prints help information for all flags.
func (cm *ConfigManager) PrintUsage() {
	cm.flags.PrintHelp()
}

// ResolveConfig builds the effective Config with precedence
// flags > environment > file > defaults. The returned FileConfig is nil
// when no file was given; callers use it for the protected-path preload.
func (cm *ConfigManager) ResolveConfig() (Config, *FileConfig, error) {
	// File layer first, so every later layer can override it.
	var config Config
	var fileConfig *FileConfig
	if path := cm.flags.GetString("config"); path != "" {
		var err error
		fileConfig, err = LoadConfigFile(path)
		if err != nil {
			return Config{}, nil, err
		}
		config, err = fileConfig.ToConfig()
		if err != nil {
			return Config{}, nil, err
		}
	}

	// Environment layer overrides the file where a variable is set.
	envOverlay, err := loadEnvOverlay()
	if err != nil {
		return Config{}, nil, err
	}
	config = mergeConfigs(config, envOverlay)

	// Flag layer wins over everything.
	if stateStr := cm.flags.GetString("state"); stateStr != "" {
		state, err := ParseEnforcementState(stateStr)
		if err != nil {
			return Config{}, nil, err
		}
		config = config.WithInitialState(state)
	}
	if output := cm.flags.GetString("audit-output"); output != "" {
		config.Audit.OutputFile = output
	}
	if capacity := cm.flags.GetInt("ring-capacity"); capacity > 0 {
		config.RingCapacity = int64(capacity)
	}
	if interval := cm.flags.GetDuration("audit-flush-interval"); interval > 0 {
		config.Audit.FlushInterval = interval
	}

	// Auditing defaults on for the daemon unless a layer disabled it.
	if !config.auditEnabledSet {
		config = config.WithAuditEnabled(true)
	}

	return config.WithDefaults(), fileConfig, nil
}

// ResolvePassword reads the administration password, preferring the
// --password-file flag over the WARDEN_ADMIN_PASSWORD environment
// variable. The plaintext goes straight to New, which hashes it.
func (cm *ConfigManager) ResolvePassword() (string, error) {
	if path := cm.flags.GetString("password-file"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied credential file
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return trimTrailingNewlines(string(data)), nil
	}
	if pw := os.Getenv("WARDEN_ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("no administration password configured (use --password-file or WARDEN_ADMIN_PASSWORD)")
}

// mergeConfigs overlays set fields of over onto base.
func mergeConfigs(base, over Config) Config {
	if over.initialStateSet {
		base = base.WithInitialState(over.InitialState)
	}
	if over.RingCapacity > 0 {
		base.RingCapacity = over.RingCapacity
	}
	if over.Audit.OutputFile != "" {
		base.Audit.OutputFile = over.Audit.OutputFile
	}
	if over.Audit.BufferSize > 0 {
		base.Audit.BufferSize = over.Audit.BufferSize
	}
	if over.Audit.FlushInterval > 0 {
		base.Audit.FlushInterval = over.Audit.FlushInterval
	}
	if over.auditEnabledSet {
		base = base.WithAuditEnabled(over.Audit.Enabled)
	}
	return base
}

func trimTrailingNewlines(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
