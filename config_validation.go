// config_validation.go - configuration validation for Warden
//
// Validates a Config before the monitor is constructed, reporting every
// problem at once instead of failing on the first, so an operator can fix
// a deployment in one pass.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// Validation errors - implementing error codes pattern from Iris
var (
	ErrInvalidInitialState  = errors.New(ErrCodeInvalidConfig, "initial enforcement state is not one of OFF, ON, REC_OFF, REC_ON")
	ErrRingCapacityInvalid  = errors.New(ErrCodeInvalidRing, "ring capacity must be a power of 2")
	ErrInvalidBufferSize    = errors.New(ErrCodeInvalidAuditConfig, "audit buffer size cannot be negative")
	ErrInvalidFlushInterval = errors.New(ErrCodeInvalidAuditConfig, "audit flush interval cannot be negative")
	ErrUnwritableOutputFile = errors.New(ErrCodeInvalidOutputFile, "audit output directory is not writable")
)

// ValidationResult contains the result of configuration validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String returns a human-readable representation of validation results.
func (vr ValidationResult) String() string {
	if vr.Valid {
		if len(vr.Warnings) == 0 {
			return "Configuration is valid"
		}
		return fmt.Sprintf("Configuration is valid with %d warning(s)", len(vr.Warnings))
	}
	return fmt.Sprintf("Configuration is invalid: %d error(s), %d warning(s)", len(vr.Errors), len(vr.Warnings))
}

// ValidateConfig checks a Config for errors and performance warnings.
// Defaults are applied first, so only explicitly-set bad values fail.
func ValidateConfig(config Config) ValidationResult {
	raw := config
	config = config.WithDefaults()
	result := ValidationResult{Valid: true}

	if !config.InitialState.Valid() {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidInitialState.Error())
	}

	if config.RingCapacity <= 0 || (config.RingCapacity&(config.RingCapacity-1)) != 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ErrRingCapacityInvalid.Error())
	} else if config.RingCapacity < 16 {
		result.Warnings = append(result.Warnings,
			"ring capacity below 16 can drop events under concurrent denial bursts")
	}

	// Defaults replace unset (zero) values, so only explicitly negative
	// audit settings are rejected.
	if raw.Audit.BufferSize < 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidBufferSize.Error())
	}
	if raw.Audit.FlushInterval < 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ErrInvalidFlushInterval.Error())
	}

	if config.Audit.Enabled {
		dir := filepath.Dir(config.Audit.OutputFile)
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				result.Valid = false
				result.Errors = append(result.Errors, ErrUnwritableOutputFile.Error())
			}
		}
		// A missing directory is created at startup, so it is not an error here.
	} else {
		result.Warnings = append(result.Warnings,
			"auditing is disabled; denied operations will leave no trail")
	}

	return result
}

// GetErrorCode extracts the error code from a Warden error.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	// Handle go-errors format: [CODE]: Message
	if len(errStr) > 3 && errStr[0] == '[' {
		for idx := 1; idx < len(errStr); idx++ {
			if errStr[idx] == ']' {
				return errStr[1:idx]
			}
		}
	}

	// Fallback for old format: CODE: Message
	for idx := 0; idx < len(errStr); idx++ {
		if errStr[idx] == ':' {
			return errStr[:idx]
		}
	}

	return ""
}
