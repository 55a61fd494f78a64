// warden: Runtime-switchable filesystem reference monitor with BoreasLite audit ring
//
// Philosophy:
// - Minimal dependencies (AGILira ecosystem only: go-errors, go-timecache)
// - One shared lock for enforcement state and protected-path registry,
//   so a decision's state check and registry check are a single atomic view
// - Decision path never performs I/O; auditing is decoupled by an MPSC ring
// - Thread-safe by construction: the Monitor is an explicit context object,
//   never an ambient global
//
// Example Usage:
//   monitor, err := warden.New("secret", warden.Config{})
//   if err != nil { ... }
//   monitor.Start()
//   defer monitor.Close()
//
//   if _, err := monitor.SwitchState(warden.StateRecOn, "secret"); err != nil { ... }
//   if _, err := monitor.ManagePath(warden.PathAdd, "/etc/shadow", "secret"); err != nil { ... }
//
//   req, _ := warden.OpenWriteRequest(monitor.Resolver(), "/etc/shadow", warden.CurrentCaller())
//   if monitor.Decide(req).Denied() {
//       // fail the intercepted operation with a permission error
//   }
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"golang.org/x/sys/unix"
)

// Error codes for Warden operations
const (
	ErrCodeInvalidConfig      = "WARDEN_INVALID_CONFIG"
	ErrCodePermissionDenied   = "WARDEN_PERMISSION_DENIED"
	ErrCodeInvalidCredential  = "WARDEN_INVALID_CREDENTIAL"
	ErrCodeNoOp               = "WARDEN_NO_OP"
	ErrCodeWrongMode          = "WARDEN_WRONG_MODE"
	ErrCodeAlreadyPresent     = "WARDEN_ALREADY_PRESENT"
	ErrCodeNotFound           = "WARDEN_NOT_FOUND"
	ErrCodeEmpty              = "WARDEN_EMPTY"
	ErrCodeLookupFailure      = "WARDEN_LOOKUP_FAILURE"
	ErrCodeFingerprintFailure = "WARDEN_FINGERPRINT_FAILURE"
	ErrCodeMonitorClosed      = "WARDEN_MONITOR_CLOSED"
	ErrCodeInvalidRing        = "WARDEN_INVALID_RING_CAPACITY"
	ErrCodeInvalidAuditConfig = "WARDEN_INVALID_AUDIT_CONFIG"
	ErrCodeInvalidOutputFile  = "WARDEN_INVALID_OUTPUT_FILE"
)

// Config configures a Monitor instance.
type Config struct {
	// InitialState is the enforcement state at startup.
	// Defaults to StateRecOn, matching the historical monitor behavior
	// of coming up reconfigurable and enforcing.
	InitialState EnforcementState

	// RingCapacity is the size of the BoreasLite denial-event ring.
	// Must be a power of 2; defaults to 256. The ring never blocks the
	// decision path: on saturation events are dropped and counted.
	RingCapacity int64

	// Audit configures the asynchronous audit trail.
	Audit AuditConfig

	// Resolver maps paths to filesystem object identities. Defaults to
	// the operating system resolver. Injectable for tests.
	Resolver PathResolver

	// IdentityFunc supplies the calling principal's effective UID for
	// the administration surface. Defaults to unix.Geteuid. Injectable
	// for tests, which rarely run as root.
	IdentityFunc func() int

	initialStateSet bool
	auditEnabledSet bool
}

// WithInitialState sets the startup enforcement state explicitly.
// Needed because StateOff is the zero value and would otherwise be
// indistinguishable from "unset".
func (c Config) WithInitialState(s EnforcementState) Config {
	c.InitialState = s
	c.initialStateSet = true
	return c
}

// WithAuditEnabled switches the audit trail on or off explicitly.
// Needed because false is the zero value, and configuration layering
// must tell an explicit "disabled" apart from "unset".
func (c Config) WithAuditEnabled(enabled bool) Config {
	c.Audit.Enabled = enabled
	c.auditEnabledSet = true
	return c
}

// WithDefaults fills zero-valued fields with production defaults.
func (c Config) WithDefaults() Config {
	if !c.initialStateSet && c.InitialState == StateOff {
		c.InitialState = StateRecOn
		c.initialStateSet = true
	}
	if c.RingCapacity == 0 {
		c.RingCapacity = 256
	}
	c.Audit = c.Audit.WithDefaults()
	if c.Resolver == nil {
		c.Resolver = NewOSResolver()
	}
	if c.IdentityFunc == nil {
		c.IdentityFunc = unix.Geteuid
	}
	return c
}

// Monitor is the process-wide reference monitor instance. It owns the
// enforcement state, the protected-path registry, the stored credential
// digest and the audit pipeline. Administration (SwitchState, ManagePath)
// and decisions (Decide) operate on the same instance; both serialize on
// one shared mutex so no decision can observe a torn administrative update.
type Monitor struct {
	mu       sync.Mutex
	state    EnforcementState
	registry pathRegistry

	pwDigest []byte

	config   Config
	resolver PathResolver
	identity func() int

	ring    *BoreasLite
	auditor *AuditLogger

	consumerDone chan struct{}
	started      bool
	closed       bool
}

// New constructs a Monitor with the administrator password. The plaintext
// is hashed immediately and never retained.
func New(password string, config Config) (*Monitor, error) {
	if password == "" {
		return nil, errors.New(ErrCodeInvalidConfig, "administrator password cannot be empty")
	}
	config = config.WithDefaults()
	if !config.InitialState.Valid() {
		return nil, errors.New(ErrCodeInvalidConfig, "invalid initial enforcement state")
	}
	if config.RingCapacity <= 0 || (config.RingCapacity&(config.RingCapacity-1)) != 0 {
		return nil, errors.New(ErrCodeInvalidRing, "ring capacity must be a power of 2")
	}

	auditor, err := NewAuditLogger(config.Audit)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeInvalidAuditConfig, "failed to initialize audit logger")
	}

	m := &Monitor{
		state:        config.InitialState,
		pwDigest:     []byte(Digest([]byte(password))),
		config:       config,
		resolver:     config.Resolver,
		identity:     config.IdentityFunc,
		auditor:      auditor,
		consumerDone: make(chan struct{}),
	}
	m.ring = NewBoreasLite(config.RingCapacity, auditor.consume)
	return m, nil
}

// Start launches the single audit consumer. Safe to call once; further
// calls are no-ops.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	go func() {
		m.ring.RunProcessor()
		close(m.consumerDone)
	}()
}

// Close tears the monitor down: the ring is stopped and drained, buffered
// audit records are flushed and the log sink is released. The monitor must
// not be used afterwards.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	m.mu.Unlock()

	m.ring.Stop()
	if started {
		select {
		case <-m.consumerDone:
		case <-time.After(5 * time.Second):
			// Consumer is wedged on sink I/O; abandon it rather than
			// hang shutdown. Buffered records are still flushed below.
		}
	}
	return m.auditor.Close()
}

// State returns the current enforcement state.
func (m *Monitor) State() EnforcementState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resolver returns the monitor's path resolver, for building
// decision requests at the interception boundary.
func (m *Monitor) Resolver() PathResolver {
	return m.resolver
}

// verifyCredential hashes the supplied plaintext and compares it to the
// stored digest in constant time.
func (m *Monitor) verifyCredential(password string) bool {
	supplied := []byte(Digest([]byte(password)))
	return subtle.ConstantTimeCompare(supplied, m.pwDigest) == 1
}

// MonitorStats is a point-in-time snapshot of monitor health counters.
type MonitorStats struct {
	State          EnforcementState `json:"state"`
	ProtectedCount int              `json:"protected_count"`
	Ring           map[string]int64 `json:"ring"`
}

// Stats returns a snapshot of the monitor's state and ring counters.
func (m *Monitor) Stats() MonitorStats {
	m.mu.Lock()
	state := m.state
	count := m.registry.size()
	m.mu.Unlock()

	return MonitorStats{
		State:          state,
		ProtectedCount: count,
		Ring:           m.ring.Stats(),
	}
}
