// config_file.go: Configuration file loading for Warden
//
// Supports YAML and JSON, selected by extension. The file may carry an
// initial protected set, which the daemon registers through the
// administration gateway at startup; the file never carries the
// administration password itself.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/agilira/go-errors"
	"go.yaml.in/yaml/v3"
)

// FileConfig is the on-disk configuration shape.
type FileConfig struct {
	InitialState   string          `json:"initial_state" yaml:"initial_state"`
	RingCapacity   int64           `json:"ring_capacity" yaml:"ring_capacity"`
	Audit          FileAuditConfig `json:"audit" yaml:"audit"`
	ProtectedPaths []string        `json:"protected_paths" yaml:"protected_paths"`

	// FlushIntervalStr accepts human-readable durations ("5s") for the
	// audit flush interval, taking precedence over Audit.FlushInterval.
	FlushIntervalStr string `json:"audit_flush_interval,omitempty" yaml:"audit_flush_interval,omitempty"`
}

// FileAuditConfig is the audit section of the file shape. Enabled is a
// pointer so an absent key can be told apart from an explicit false when
// configuration layers merge.
type FileAuditConfig struct {
	Enabled       *bool         `json:"enabled" yaml:"enabled"`
	OutputFile    string        `json:"output_file" yaml:"output_file"`
	BufferSize    int           `json:"buffer_size" yaml:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// LoadConfigFile reads and decodes a configuration file. A ".json"
// extension selects JSON; everything else is parsed as YAML.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to read config file").
			WithContext("path", path)
	}

	fileConfig := &FileConfig{}
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, fileConfig); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse JSON config").
				WithContext("path", path)
		}
	default:
		if err := yaml.Unmarshal(data, fileConfig); err != nil {
			return nil, errors.Wrap(err, ErrCodeInvalidConfig, "failed to parse YAML config").
				WithContext("path", path)
		}
	}
	return fileConfig, nil
}

// ToConfig converts the file representation into a Config. Unset fields
// fall through to WithDefaults at construction time.
func (fc *FileConfig) ToConfig() (Config, error) {
	config := Config{
		RingCapacity: fc.RingCapacity,
		Audit: AuditConfig{
			OutputFile:    fc.Audit.OutputFile,
			BufferSize:    fc.Audit.BufferSize,
			FlushInterval: fc.Audit.FlushInterval,
		},
	}
	if fc.Audit.Enabled != nil {
		config = config.WithAuditEnabled(*fc.Audit.Enabled)
	}

	if fc.InitialState != "" {
		state, err := ParseEnforcementState(fc.InitialState)
		if err != nil {
			return Config{}, err
		}
		config = config.WithInitialState(state)
	}

	if fc.FlushIntervalStr != "" {
		interval, err := time.ParseDuration(fc.FlushIntervalStr)
		if err != nil {
			return Config{}, errors.Wrap(err, ErrCodeInvalidConfig, "invalid audit flush interval")
		}
		config.Audit.FlushInterval = interval
	}

	return config, nil
}

// RegisterProtectedPaths registers the file's initial protected set
// through the administration gateway. The monitor must be in a
// reconfigurable state. Paths that fail to resolve are collected and
// reported together after the remainder have been registered.
func (fc *FileConfig) RegisterProtectedPaths(m *Monitor, password string) error {
	var failed []string
	for _, path := range fc.ProtectedPaths {
		if _, err := m.ManagePath(PathAdd, path, password); err != nil {
			if GetErrorCode(err) == ErrCodeAlreadyPresent {
				continue
			}
			failed = append(failed, path)
		}
	}
	if len(failed) > 0 {
		return errors.New(ErrCodeLookupFailure, "some protected paths could not be registered").
			WithContext("paths", failed)
	}
	return nil
}
