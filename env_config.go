// env_config.go: Environment Variables Support for Warden Configuration
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package warden provides environment variable configuration loading for
// container deployments, where flags and files are often impractical.

package warden

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/go-errors"
)

// EnvConfig represents configuration loaded from environment variables.
type EnvConfig struct {
	// Core Configuration
	InitialState string `env:"WARDEN_INITIAL_STATE"`
	RingCapacity int64  `env:"WARDEN_RING_CAPACITY"`

	// Audit Configuration
	AuditEnabled       bool          `env:"WARDEN_AUDIT_ENABLED"`
	AuditOutputFile    string        `env:"WARDEN_AUDIT_OUTPUT_FILE"`
	AuditBufferSize    int           `env:"WARDEN_AUDIT_BUFFER_SIZE"`
	AuditFlushInterval time.Duration `env:"WARDEN_AUDIT_FLUSH_INTERVAL"`

	auditEnabledSet bool
}

// LoadConfigFromEnv loads Warden configuration from WARDEN_* environment
// variables, applying defaults for anything unset. Auditing defaults on
// here: the library surface keeps it opt-in, but environment-driven
// deployments expect a trail unless WARDEN_AUDIT_ENABLED disables it.
func LoadConfigFromEnv() (*Config, error) {
	config, err := loadEnvOverlay()
	if err != nil {
		return nil, err
	}
	if !config.auditEnabledSet {
		config = config.WithAuditEnabled(true)
	}

	withDefaults := config.WithDefaults()
	return &withDefaults, nil
}

// loadEnvOverlay loads only the explicitly set WARDEN_* variables, with
// no defaults underneath, so ResolveConfig can merge the environment
// over lower-precedence layers without clobbering them.
func loadEnvOverlay() (Config, error) {
	envConfig := &EnvConfig{}
	if err := loadEnvVars(envConfig); err != nil {
		return Config{}, errors.Wrap(err, ErrCodeInvalidConfig, "failed to load environment configuration")
	}

	config := Config{}
	if err := convertEnvToConfig(envConfig, &config); err != nil {
		return Config{}, errors.Wrap(err, ErrCodeInvalidConfig, "failed to convert environment configuration")
	}
	return config, nil
}

// loadEnvVars loads environment variables into the EnvConfig struct.
func loadEnvVars(envConfig *EnvConfig) error {
	envConfig.InitialState = os.Getenv("WARDEN_INITIAL_STATE")

	if capacityStr := os.Getenv("WARDEN_RING_CAPACITY"); capacityStr != "" {
		capacity, err := strconv.ParseInt(capacityStr, 10, 64)
		if err != nil || capacity <= 0 {
			return errors.New(ErrCodeInvalidConfig, "invalid WARDEN_RING_CAPACITY value")
		}
		envConfig.RingCapacity = capacity
	}

	if auditStr := os.Getenv("WARDEN_AUDIT_ENABLED"); auditStr != "" {
		envConfig.AuditEnabled = parseEnvBool(auditStr)
		envConfig.auditEnabledSet = true
	}

	envConfig.AuditOutputFile = os.Getenv("WARDEN_AUDIT_OUTPUT_FILE")

	if bufferStr := os.Getenv("WARDEN_AUDIT_BUFFER_SIZE"); bufferStr != "" {
		if buffer, err := strconv.Atoi(bufferStr); err == nil && buffer > 0 {
			envConfig.AuditBufferSize = buffer
		}
	}

	if flushStr := os.Getenv("WARDEN_AUDIT_FLUSH_INTERVAL"); flushStr != "" {
		duration, err := time.ParseDuration(flushStr)
		if err != nil {
			return errors.New(ErrCodeInvalidConfig, "invalid WARDEN_AUDIT_FLUSH_INTERVAL format")
		}
		envConfig.AuditFlushInterval = duration
	}

	return nil
}

// convertEnvToConfig converts the EnvConfig into a Config.
func convertEnvToConfig(envConfig *EnvConfig, config *Config) error {
	if envConfig.InitialState != "" {
		state, err := ParseEnforcementState(envConfig.InitialState)
		if err != nil {
			return err
		}
		*config = config.WithInitialState(state)
	}

	if envConfig.auditEnabledSet {
		*config = config.WithAuditEnabled(envConfig.AuditEnabled)
	}

	config.RingCapacity = envConfig.RingCapacity
	config.Audit.OutputFile = envConfig.AuditOutputFile
	config.Audit.BufferSize = envConfig.AuditBufferSize
	config.Audit.FlushInterval = envConfig.AuditFlushInterval
	return nil
}

// parseEnvBool parses boolean environment values liberally.
func parseEnvBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on", "enabled":
		return true
	default:
		return false
	}
}
