// harness_test.go: Shared test fixtures for the warden package
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"testing"

	"github.com/agilira/go-errors"
)

const testPassword = "correct-horse"

// fakeResolver serves canned identities so tests exercise the monitor
// without touching the filesystem.
type fakeResolver struct {
	objects map[string]ResolvedObject
	chains  map[string][]uint64
}

func (f *fakeResolver) Resolve(path string) (ResolvedObject, error) {
	if obj, ok := f.objects[path]; ok {
		return obj, nil
	}
	return ResolvedObject{}, errors.New(ErrCodeLookupFailure, "cannot resolve "+path)
}

func (f *fakeResolver) AncestorChain(path string) ([]uint64, error) {
	if chain, ok := f.chains[path]; ok {
		return chain, nil
	}
	return nil, errors.New(ErrCodeLookupFailure, "no ancestor chain for "+path)
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		objects: map[string]ResolvedObject{
			"/etc/shadow":        {Path: "/etc/shadow", Identity: 101, ParentIdentity: 11, IsDir: false},
			"/srv/data":          {Path: "/srv/data", Identity: 50, ParentIdentity: 5, IsDir: true},
			"/srv/data/file.txt": {Path: "/srv/data/file.txt", Identity: 777, ParentIdentity: 50, IsDir: false},
			"/tmp/free.txt":      {Path: "/tmp/free.txt", Identity: 900, ParentIdentity: 90, IsDir: false},
		},
		chains: map[string][]uint64{
			"/etc/shadow":        {11, 2},
			"/srv/data":          {5, 2},
			"/srv/data/file.txt": {50, 5, 2},
			"/tmp/free.txt":      {90, 2},
		},
	}
}

// newTestMonitor builds a monitor with the fake resolver, a superuser
// identity and auditing disabled. Callers own Close.
func newTestMonitor(t *testing.T, initial EnforcementState) *Monitor {
	t.Helper()
	m, err := New(testPassword, Config{
		Resolver:     newFakeResolver(),
		IdentityFunc: func() int { return 0 },
		RingCapacity: 16,
	}.WithInitialState(initial))
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return m
}
