// state.go: Enforcement state machine for the Warden reference monitor
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"strings"

	"github.com/agilira/go-errors"
)

// EnforcementState is the four-valued mode of the reference monitor.
// It controls two orthogonal properties: whether write-class operations
// on protected targets are denied, and whether the protected-path
// registry may be reconfigured.
type EnforcementState int32

const (
	// StateOff disables denial; the registry is immutable.
	StateOff EnforcementState = iota

	// StateOn enables denial; the registry is immutable.
	StateOn

	// StateRecOff disables denial; the registry is mutable.
	StateRecOff

	// StateRecOn enables denial; the registry is mutable.
	StateRecOn
)

// DenialActive reports whether intercepted operations on protected
// targets must be denied in this state.
func (s EnforcementState) DenialActive() bool {
	return s == StateOn || s == StateRecOn
}

// Reconfigurable reports whether the protected-path registry may be
// mutated in this state. Registry mutation outside a reconfigurable
// state fails with ErrCodeWrongMode.
func (s EnforcementState) Reconfigurable() bool {
	return s == StateRecOff || s == StateRecOn
}

// Valid reports whether s is one of the four defined states.
func (s EnforcementState) Valid() bool {
	return s >= StateOff && s <= StateRecOn
}

func (s EnforcementState) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateOn:
		return "ON"
	case StateRecOff:
		return "REC_OFF"
	case StateRecOn:
		return "REC_ON"
	default:
		return "UNKNOWN"
	}
}

// ParseEnforcementState parses a state name as accepted on the
// administration surface. Matching is case-insensitive and accepts
// both "REC_ON" and "rec-on" spellings.
func ParseEnforcementState(name string) (EnforcementState, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "-", "_")) {
	case "OFF":
		return StateOff, nil
	case "ON":
		return StateOn, nil
	case "REC_OFF":
		return StateRecOff, nil
	case "REC_ON":
		return StateRecOn, nil
	default:
		return StateOff, errors.New(ErrCodeInvalidConfig, "unknown enforcement state: "+name)
	}
}
