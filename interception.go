// interception.go: Interception-source boundary for Warden
//
// The hooking mechanism itself (fanotify, LSM, syscall shims) is outside
// this module. Whatever the host exposes, the source's obligations are
// the same: capture the caller's identity, perform the class-specific
// identity extraction below, call Decide, and translate Deny into a
// permission error for the original caller.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"os"

	"golang.org/x/sys/unix"
)

// CurrentCaller captures the calling context's credentials and
// responsible executable for EventDescriptor construction. An
// out-of-process interception source supplies these fields from the
// intercepted task instead.
func CurrentCaller() CallerContext {
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	}
	return CallerContext{
		EUID:       unix.Geteuid(),
		RUID:       unix.Getuid(),
		TID:        unix.Gettid(),
		TGID:       unix.Getpid(),
		Executable: exe,
	}
}

// OpenWriteRequest builds the request for an open-for-write: the checked
// identity is the file being opened, with its ancestor chain for
// containment.
func OpenWriteRequest(r PathResolver, path string, caller CallerContext) (AccessRequest, error) {
	resolved, err := r.Resolve(path)
	if err != nil {
		return AccessRequest{}, err
	}
	ancestors, err := r.AncestorChain(resolved.Path)
	if err != nil {
		return AccessRequest{}, err
	}
	return AccessRequest{
		Op:        OpOpenWrite,
		Identity:  resolved.Identity,
		Path:      resolved.Path,
		Ancestors: ancestors,
		Caller:    caller,
	}, nil
}

// CreationRequest builds the request for create/mkdir/mknod/symlink: the
// object does not exist yet, so the checked identity is the parent
// directory and its ancestor chain. Only containment can deny these.
func CreationRequest(r PathResolver, op OpKind, dir string, caller CallerContext) (AccessRequest, error) {
	resolved, err := r.Resolve(dir)
	if err != nil {
		return AccessRequest{}, err
	}
	ancestors, err := r.AncestorChain(resolved.Path)
	if err != nil {
		return AccessRequest{}, err
	}
	return AccessRequest{
		Op:        op,
		Identity:  resolved.Identity,
		Path:      resolved.Path,
		Ancestors: ancestors,
		Caller:    caller,
	}, nil
}

// RemovalRequest builds the request for link/unlink/rmdir: the checked
// identity is the existing target plus its parent's ancestor chain.
func RemovalRequest(r PathResolver, op OpKind, path string, caller CallerContext) (AccessRequest, error) {
	resolved, err := r.Resolve(path)
	if err != nil {
		return AccessRequest{}, err
	}
	ancestors, err := r.AncestorChain(resolved.Path)
	if err != nil {
		return AccessRequest{}, err
	}
	return AccessRequest{
		Op:        op,
		Identity:  resolved.Identity,
		Path:      resolved.Path,
		Ancestors: ancestors,
		Caller:    caller,
	}, nil
}

// RenameRequest builds the request for a rename. Only the source object
// is checked; the destination is deliberately not inspected.
func RenameRequest(r PathResolver, source string, caller CallerContext) (AccessRequest, error) {
	resolved, err := r.Resolve(source)
	if err != nil {
		return AccessRequest{}, err
	}
	ancestors, err := r.AncestorChain(resolved.Path)
	if err != nil {
		return AccessRequest{}, err
	}
	return AccessRequest{
		Op:        OpRename,
		Identity:  resolved.Identity,
		Path:      resolved.Path,
		Ancestors: ancestors,
		Caller:    caller,
	}, nil
}

// SetattrRequest builds the request for an attribute change: the target
// object only, with no ancestor-chain containment.
func SetattrRequest(r PathResolver, path string, caller CallerContext) (AccessRequest, error) {
	resolved, err := r.Resolve(path)
	if err != nil {
		return AccessRequest{}, err
	}
	return AccessRequest{
		Op:       OpSetattr,
		Identity: resolved.Identity,
		Path:     resolved.Path,
		Caller:   caller,
	}, nil
}

// Errno maps a decision to the outcome the interception source must
// deliver: nil for Allow, EACCES for Deny. A denied operation is
// indistinguishable from any other access-control denial at that
// boundary.
func (d Decision) Errno() error {
	if d.Denied() {
		return unix.EACCES
	}
	return nil
}
