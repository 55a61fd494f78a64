// registry.go: Protected-path registry for the Warden reference monitor
//
// The registry is a small, administrator-curated collection, so a linear
// scan is deliberate: it keeps decisions allocation-free and avoids index
// structures that would complicate the single shared critical section.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"github.com/agilira/go-errors"
)

// ProtectedEntry is one registered filesystem target. A target is
// identified by its stable object identity (inode number), not by its
// path string: two paths resolving to the same object are one entry.
// ParentIdentity is a resolved value captured at registration time and
// is used only for containment comparison, never dereferenced.
type ProtectedEntry struct {
	Path           string
	Identity       uint64
	ParentIdentity uint64
	IsDir          bool
}

// pathRegistry holds the protected entries in insertion order.
//
// Locking is owned by the caller: every method assumes the Monitor's
// shared mutex is already held, so a state check and a registry check
// can share one critical section. The registry never acquires locks.
type pathRegistry struct {
	entries []ProtectedEntry
}

// add appends an entry, rejecting duplicates by object identity.
// A duplicate insert fails with ErrCodeAlreadyPresent and leaves the
// registry unchanged; entries are never merged.
func (r *pathRegistry) add(entry ProtectedEntry) error {
	for i := range r.entries {
		if r.entries[i].Identity == entry.Identity {
			return errors.New(ErrCodeAlreadyPresent, "target already protected").
				WithContext("path", entry.Path).
				WithContext("registered_path", r.entries[i].Path)
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

// remove deletes the entry matching path by string equality. At most one
// entry per object identity exists, so the first match is the only match.
func (r *pathRegistry) remove(path string) error {
	if len(r.entries) == 0 {
		return errors.New(ErrCodeEmpty, "the protected set is empty")
	}
	for i := range r.entries {
		if r.entries[i].Path == path {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return errors.New(ErrCodeNotFound, "path is not protected").
		WithContext("path", path)
}

// list returns a snapshot copy of the entries in insertion order.
// The copy stays valid after the shared lock is released.
func (r *pathRegistry) list() []ProtectedEntry {
	out := make([]ProtectedEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// findByIdentity returns the entry registered for the given object
// identity, if any.
func (r *pathRegistry) findByIdentity(identity uint64) (ProtectedEntry, bool) {
	for i := range r.entries {
		if r.entries[i].Identity == identity {
			return r.entries[i], true
		}
	}
	return ProtectedEntry{}, false
}

// match implements the decision-time registry test. It returns the
// matched entry when either the primary identity is itself registered,
// or any ancestor directory identity is registered as a protected
// directory (subdirectory containment).
func (r *pathRegistry) match(primary uint64, ancestors []uint64) (ProtectedEntry, bool) {
	if entry, ok := r.findByIdentity(primary); ok {
		return entry, true
	}
	for _, ancestor := range ancestors {
		for i := range r.entries {
			if r.entries[i].IsDir && r.entries[i].Identity == ancestor {
				return r.entries[i], true
			}
		}
	}
	return ProtectedEntry{}, false
}

// size returns the number of protected entries.
func (r *pathRegistry) size() int {
	return len(r.entries)
}
