// resolver_test.go: OS path resolver tests
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package warden

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOSResolverResolveFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "target.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	r := NewOSResolver()
	obj, err := r.Resolve(file)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if obj.Path != file {
		t.Errorf("Path = %s, want %s", obj.Path, file)
	}
	if obj.Identity == 0 {
		t.Error("Expected nonzero inode identity")
	}
	if obj.IsDir {
		t.Error("Regular file resolved as directory")
	}

	parent, err := r.Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve parent failed: %v", err)
	}
	if !parent.IsDir {
		t.Error("Directory not resolved as directory")
	}
	if obj.ParentIdentity != parent.Identity {
		t.Errorf("ParentIdentity = %d, want %d", obj.ParentIdentity, parent.Identity)
	}
}

func TestOSResolverResolveMissing(t *testing.T) {
	r := NewOSResolver()
	_, err := r.Resolve(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("Expected error for missing object")
	}
	if code := GetErrorCode(err); code != ErrCodeLookupFailure {
		t.Errorf("Expected %s, got %s", ErrCodeLookupFailure, code)
	}
}

func TestOSResolverFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	link := filepath.Join(dir, "alias")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("Symlinks unavailable: %v", err)
	}

	r := NewOSResolver()
	viaLink, err := r.Resolve(link)
	if err != nil {
		t.Fatalf("Resolve via symlink failed: %v", err)
	}
	direct, err := r.Resolve(target)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if viaLink.Identity != direct.Identity {
		t.Errorf("Symlink identity %d != target identity %d", viaLink.Identity, direct.Identity)
	}
}

func TestOSResolverAncestorChain(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	file := filepath.Join(sub, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	r := NewOSResolver()
	chain, err := r.AncestorChain(file)
	if err != nil {
		t.Fatalf("AncestorChain failed: %v", err)
	}
	if len(chain) < 3 {
		t.Fatalf("Chain too short: %v", chain)
	}

	// Nearest first: parent directory, then grandparent.
	b, err := r.Resolve(sub)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if chain[0] != b.Identity {
		t.Errorf("chain[0] = %d, want parent %d", chain[0], b.Identity)
	}
	a, err := r.Resolve(filepath.Join(dir, "a"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if chain[1] != a.Identity {
		t.Errorf("chain[1] = %d, want grandparent %d", chain[1], a.Identity)
	}
}
