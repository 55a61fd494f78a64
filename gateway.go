// gateway.go: Password-verified administration surface for Warden
//
// The gateway is the only writer of the enforcement state and the
// protected-path registry. Every command performs the same two checks in
// order: the calling principal must be the superuser, and the supplied
// plaintext must hash to the stored credential digest. A failed command
// performs no mutation.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"github.com/agilira/go-errors"
)

// PathOp selects the registry operation on the administration surface.
type PathOp int

const (
	// PathAdd registers a new protected target.
	PathAdd PathOp = iota
	// PathRemove unregisters a protected target by path.
	PathRemove
	// PathList returns the protected set in insertion order.
	PathList
)

func (op PathOp) String() string {
	switch op {
	case PathAdd:
		return "add"
	case PathRemove:
		return "remove"
	case PathList:
		return "list"
	default:
		return "unknown"
	}
}

// authorize performs the caller-identity and credential checks shared by
// every administration command. It must run before any state is touched.
func (m *Monitor) authorize(password string) error {
	if m.identity() != 0 {
		return errors.New(ErrCodePermissionDenied, "administration requires the superuser")
	}
	if !m.verifyCredential(password) {
		return errors.New(ErrCodeInvalidCredential, "credential mismatch")
	}
	return nil
}

// SwitchState transitions the monitor to target and returns the previous
// state. Any state may transition to any other; transitioning to the
// state already active fails with ErrCodeNoOp and changes nothing.
func (m *Monitor) SwitchState(target EnforcementState, password string) (EnforcementState, error) {
	if !target.Valid() {
		return StateOff, errors.New(ErrCodeInvalidConfig, "invalid target enforcement state")
	}
	if err := m.authorize(password); err != nil {
		return StateOff, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.state
	if previous == target {
		return previous, errors.New(ErrCodeNoOp, "monitor is already in state "+target.String())
	}
	m.state = target
	return previous, nil
}

// ManagePath administers the protected-path registry. Add and Remove
// require the monitor to be in a reconfigurable state (REC_OFF or REC_ON),
// else the command fails with ErrCodeWrongMode. List also requires the
// credential: the protected set is not disclosed to unauthenticated
// callers.
//
// For PathList the returned slice is a snapshot in insertion order; for
// Add and Remove it is nil.
func (m *Monitor) ManagePath(op PathOp, path string, password string) ([]ProtectedEntry, error) {
	if err := m.authorize(password); err != nil {
		return nil, err
	}

	if op == PathList {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.registry.list(), nil
	}

	if path == "" {
		return nil, errors.New(ErrCodeInvalidConfig, "path cannot be empty")
	}

	// Mode precondition comes before path resolution: an administrator in
	// ON/OFF gets WrongMode even for a path that would not resolve.
	m.mu.Lock()
	if !m.state.Reconfigurable() {
		state := m.state
		m.mu.Unlock()
		return nil, wrongModeError(state)
	}
	m.mu.Unlock()

	switch op {
	case PathAdd:
		// Resolve outside the critical section: lookup is blocking I/O
		// and must not extend the window decisions wait on.
		resolved, err := m.resolver.Resolve(path)
		if err != nil {
			return nil, err
		}
		entry := ProtectedEntry{
			Path:           resolved.Path,
			Identity:       resolved.Identity,
			ParentIdentity: resolved.ParentIdentity,
			IsDir:          resolved.IsDir,
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.state.Reconfigurable() {
			return nil, wrongModeError(m.state)
		}
		return nil, m.registry.add(entry)

	case PathRemove:
		abs := path
		if resolved, err := m.resolver.Resolve(path); err == nil {
			abs = resolved.Path
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.state.Reconfigurable() {
			return nil, wrongModeError(m.state)
		}
		if err := m.registry.remove(abs); err != nil {
			// The object may have been registered under the literal
			// spelling before it was removable from the filesystem.
			if abs != path {
				return nil, m.registry.remove(path)
			}
			return nil, err
		}
		return nil, nil

	default:
		return nil, errors.New(ErrCodeInvalidConfig, "unknown path operation")
	}
}

// FindProtected returns the entry registered for the given object
// identity, if any. Read-only; used by diagnostics and tests.
func (m *Monitor) FindProtected(identity uint64) (ProtectedEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.findByIdentity(identity)
}

func wrongModeError(current EnforcementState) error {
	return errors.New(ErrCodeWrongMode, "registry administration requires REC_OFF or REC_ON").
		WithContext("state", current.String())
}
