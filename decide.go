// decide.go: Interception decision engine for Warden
//
// Decide runs inline in whatever execution context the interception
// source invokes it from. The only blocking it may do is the short
// acquisition of the shared mutex; it never performs I/O, never sleeps
// and never waits on the audit ring.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"github.com/agilira/go-timecache"
)

// OpKind is the class of an intercepted filesystem operation.
type OpKind uint8

const (
	// OpOpenWrite is an open of an existing file for writing.
	OpOpenWrite OpKind = iota + 1
	// OpCreate is creation of a regular file.
	OpCreate
	// OpMkdir is directory creation.
	OpMkdir
	// OpMknod is special-node creation.
	OpMknod
	// OpSymlink is symbolic-link creation.
	OpSymlink
	// OpLink is hard-link creation over an existing target.
	OpLink
	// OpUnlink is file removal.
	OpUnlink
	// OpRmdir is directory removal.
	OpRmdir
	// OpRename is a rename; only the source object is checked.
	OpRename
	// OpSetattr is an attribute change (chmod/chown/truncate class);
	// checked without ancestor containment.
	OpSetattr
)

func (k OpKind) String() string {
	switch k {
	case OpOpenWrite:
		return "open-write"
	case OpCreate:
		return "create"
	case OpMkdir:
		return "mkdir"
	case OpMknod:
		return "mknod"
	case OpSymlink:
		return "symlink"
	case OpLink:
		return "link"
	case OpUnlink:
		return "unlink"
	case OpRmdir:
		return "rmdir"
	case OpRename:
		return "rename"
	case OpSetattr:
		return "setattr"
	default:
		return "unknown"
	}
}

// CallerContext is the identity of the execution context performing an
// intercepted operation, supplied by the interception source.
type CallerContext struct {
	EUID       int
	RUID       int
	TID        int
	TGID       int
	Executable string // path of the responsible program, fingerprinted at log time
}

// AccessRequest is one intercepted operation presented for a decision.
// The interception source performs the class-specific identity
// extraction (see the request constructors in interception.go) so the
// engine itself stays free of lookups.
type AccessRequest struct {
	Op        OpKind
	Identity  uint64   // primary checked object identity
	Path      string   // path of the primary checked object
	Ancestors []uint64 // directory identities from parent to root, nearest first
	Caller    CallerContext
}

// Verdict is the outcome of a decision.
type Verdict uint8

const (
	// VerdictAllow lets the operation proceed unmodified.
	VerdictAllow Verdict = iota
	// VerdictDeny requires the interception source to fail the
	// operation with a permission error.
	VerdictDeny
)

// Decision is the result of evaluating one intercepted operation.
type Decision struct {
	Verdict Verdict
	// Matched is the protected entry path the denial was attributed to.
	// Empty for Allow.
	Matched string
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool { return d.Verdict == VerdictAllow }

// Denied reports whether the operation must be failed.
func (d Decision) Denied() bool { return d.Verdict == VerdictDeny }

// Decide evaluates one intercepted operation. It acquires the shared
// lock once, so the state check and the registry check are atomic with
// respect to any concurrent administrative change.
//
// On deny the event descriptor is built from the caller context and the
// matched entry, then enqueued to the audit ring without blocking. A
// failed enqueue degrades to "deny without audit record", never to allow.
func (m *Monitor) Decide(req AccessRequest) Decision {
	m.mu.Lock()

	if !m.state.DenialActive() {
		m.mu.Unlock()
		return Decision{Verdict: VerdictAllow}
	}
	if m.registry.size() == 0 {
		m.mu.Unlock()
		return Decision{Verdict: VerdictAllow}
	}

	var ancestors []uint64
	if req.Op != OpSetattr {
		// Attribute changes check the target object only; every other
		// class also tests subdirectory containment.
		ancestors = req.Ancestors
	}

	entry, matched := m.registry.match(req.Identity, ancestors)
	if !matched {
		m.mu.Unlock()
		return Decision{Verdict: VerdictAllow}
	}

	// Build the descriptor under the lock (it copies the matched entry's
	// path), then release before touching the ring.
	event := DeniedEvent{
		Timestamp: timecache.CachedTimeNano(),
		EUID:      int32(req.Caller.EUID), // #nosec G115 -- uids fit int32
		RUID:      int32(req.Caller.RUID), // #nosec G115
		TID:       int32(req.Caller.TID),  // #nosec G115
		TGID:      int32(req.Caller.TGID), // #nosec G115
		Op:        uint8(req.Op),
	}
	event.setPath(entry.Path)
	event.setExe(req.Caller.Executable)
	m.mu.Unlock()

	// Non-blocking: overflow drops and counts inside the ring.
	m.ring.Write(&event)

	return Decision{Verdict: VerdictDeny, Matched: entry.Path}
}
