// resolver.go: Filesystem object-identity lookup for Warden
//
// The resolver is the boundary to the platform's path-lookup capability:
// given a path it returns the stable object identity (inode number), the
// containing directory's identity and whether the object is a directory.
// Decisions never call it; only administration and the interception-side
// request constructors do, so its blocking stat calls stay off the
// decision path.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"path/filepath"

	"github.com/agilira/go-errors"
	"golang.org/x/sys/unix"
)

// ResolvedObject is the result of a path lookup.
type ResolvedObject struct {
	Path           string // absolute, cleaned path
	Identity       uint64 // inode number of the object
	ParentIdentity uint64 // inode number of the containing directory
	IsDir          bool
}

// PathResolver maps paths to filesystem object identities. Implementations
// must follow symlinks, matching the lookup semantics of the enforcement
// point. Injectable so tests can model a filesystem without touching one.
type PathResolver interface {
	// Resolve looks up path and returns its identity triple.
	// A path that does not resolve to an object fails with
	// ErrCodeLookupFailure.
	Resolve(path string) (ResolvedObject, error)

	// AncestorChain returns the object identities of every directory on
	// the path from the object's parent up to the filesystem root,
	// nearest first.
	AncestorChain(path string) ([]uint64, error)
}

// osResolver resolves against the real filesystem via stat(2).
type osResolver struct{}

// NewOSResolver returns the operating-system PathResolver.
func NewOSResolver() PathResolver {
	return osResolver{}
}

func (osResolver) Resolve(path string) (ResolvedObject, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ResolvedObject{}, errors.Wrap(err, ErrCodeLookupFailure, "invalid path").
			WithContext("path", path)
	}

	var st unix.Stat_t
	if err := unix.Stat(abs, &st); err != nil {
		return ResolvedObject{}, errors.Wrap(err, ErrCodeLookupFailure, "path does not resolve to a filesystem object").
			WithContext("path", abs)
	}

	parent := filepath.Dir(abs)
	var pst unix.Stat_t
	if err := unix.Stat(parent, &pst); err != nil {
		return ResolvedObject{}, errors.Wrap(err, ErrCodeLookupFailure, "containing directory does not resolve").
			WithContext("path", parent)
	}

	return ResolvedObject{
		Path:           abs,
		Identity:       st.Ino,
		ParentIdentity: pst.Ino,
		IsDir:          st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}, nil
}

func (osResolver) AncestorChain(path string) ([]uint64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeLookupFailure, "invalid path").
			WithContext("path", path)
	}

	var chain []uint64
	dir := filepath.Dir(abs)
	for {
		var st unix.Stat_t
		if err := unix.Stat(dir, &st); err != nil {
			return nil, errors.Wrap(err, ErrCodeLookupFailure, "ancestor directory does not resolve").
				WithContext("path", dir)
		}
		chain = append(chain, st.Ino)

		parent := filepath.Dir(dir)
		if parent == dir {
			return chain, nil
		}
		dir = parent
	}
}
