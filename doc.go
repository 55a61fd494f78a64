// Package warden provides a runtime-switchable reference monitor that
// protects a configurable set of filesystem targets from write-class
// modification, gated by a password-protected administration surface,
// with asynchronous tamper-evident auditing of denied attempts.
//
// # Architecture Overview
//
// Warden consists of six integrated subsystems:
//  1. **Enforcement State Machine**: four states (OFF, ON, REC_OFF, REC_ON)
//     controlling denial and registry mutability independently
//  2. **Protected-Path Registry**: targets keyed by stable object identity
//     (inode), with subdirectory-containment matching
//  3. **Administration Gateway**: superuser- and password-gated state
//     transitions and registry mutation, the registry's only writer
//  4. **Interception Decision Engine**: per-operation allow/deny evaluated
//     inline in the caller's context, free of I/O and allocation
//  5. **BoreasLite Audit Ring**: MPSC ring decoupling denials from the
//     audit trail; overflow drops and counts, never blocks a decision
//  6. **Audit Trail**: a single consumer fingerprinting the responsible
//     executable and appending records to a line file or SQLite store
//
// # Concurrency Model
//
// The enforcement state and the registry share one mutex, so a decision's
// "check state, check registry" sequence is atomic with respect to any
// concurrent administrative change. The decision path's only blocking is
// that mutex; all audit I/O happens on the dedicated consumer.
//
// # Quick Start
//
//	monitor, err := warden.New("secret", warden.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	monitor.Start()
//	defer monitor.Close()
//
//	if _, err := monitor.ManagePath(warden.PathAdd, "/etc/shadow", "secret"); err != nil {
//		log.Fatal(err)
//	}
//
//	req, err := warden.OpenWriteRequest(monitor.Resolver(), "/etc/shadow", warden.CurrentCaller())
//	if err == nil && monitor.Decide(req).Denied() {
//		// translate to EACCES at the interception point
//	}
//
// The hooking mechanism that intercepts filesystem operations is outside
// this module; see interception.go for the boundary contract.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package warden
