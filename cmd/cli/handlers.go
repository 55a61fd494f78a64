// Command handlers for the Warden CLI
//
// This file contains all command handler implementations for the
// Orpheus-powered administration surface.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/warden"
)

// Command Handlers

// handleStateSwitch transitions the monitor's enforcement state.
func (m *Manager) handleStateSwitch(ctx *orpheus.Context) error {
	target, err := warden.ParseEnforcementState(ctx.GetArg(0))
	if err != nil {
		return err
	}

	password, err := resolvePassword(ctx)
	if err != nil {
		return err
	}

	monitor, err := openMonitor(ctx, password)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor)

	previous, err := monitor.SwitchState(target, password)
	if err != nil {
		return err
	}

	fmt.Printf("Enforcement state switched: %s -> %s\n", previous, target)
	return nil
}

// handleStateShow prints the current enforcement state.
func (m *Manager) handleStateShow(ctx *orpheus.Context) error {
	password, err := resolvePassword(ctx)
	if err != nil {
		return err
	}

	monitor, err := openMonitor(ctx, password)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor)

	fmt.Printf("%s\n", monitor.State())
	return nil
}

// handlePathAdd registers a protected target.
func (m *Manager) handlePathAdd(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		return errors.New(warden.ErrCodeInvalidConfig, "usage: warden path add <path>")
	}

	password, err := resolvePassword(ctx)
	if err != nil {
		return err
	}

	monitor, err := openMonitor(ctx, password)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor)

	if _, err := monitor.ManagePath(warden.PathAdd, path, password); err != nil {
		return err
	}

	fmt.Printf("Protected: %s\n", path)
	return nil
}

// handlePathRemove unregisters a protected target.
func (m *Manager) handlePathRemove(ctx *orpheus.Context) error {
	path := ctx.GetArg(0)
	if path == "" {
		return errors.New(warden.ErrCodeInvalidConfig, "usage: warden path remove <path>")
	}

	password, err := resolvePassword(ctx)
	if err != nil {
		return err
	}

	monitor, err := openMonitor(ctx, password)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor)

	if _, err := monitor.ManagePath(warden.PathRemove, path, password); err != nil {
		return err
	}

	fmt.Printf("Unprotected: %s\n", path)
	return nil
}

// handlePathList prints the protected set in insertion order.
func (m *Manager) handlePathList(ctx *orpheus.Context) error {
	password, err := resolvePassword(ctx)
	if err != nil {
		return err
	}

	monitor, err := openMonitor(ctx, password)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor)

	entries, err := monitor.ManagePath(warden.PathList, "", password)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("The protected set is empty")
		return nil
	}
	for _, entry := range entries {
		kind := "file"
		if entry.IsDir {
			kind = "dir"
		}
		fmt.Printf("%s\t(%s, inode %d)\n", entry.Path, kind, entry.Identity)
	}
	return nil
}

// handleAuditQuery queries denied-operation records from a SQLite store.
func (m *Manager) handleAuditQuery(ctx *orpheus.Context) error {
	store := ctx.GetFlagString("store")
	if store == "" {
		return errors.New(warden.ErrCodeInvalidConfig, "audit query requires --store pointing to a .db audit store")
	}

	query := warden.AuditQuery{
		Op:    ctx.GetFlagString("op"),
		Path:  ctx.GetFlagString("path"),
		Limit: ctx.GetFlagInt("limit"),
	}
	if sinceStr := ctx.GetFlagString("since"); sinceStr != "" {
		span, err := time.ParseDuration(sinceStr)
		if err != nil {
			return errors.Wrap(err, warden.ErrCodeInvalidConfig, "invalid --since duration")
		}
		query.Since = time.Now().Add(-span)
	}

	records, err := warden.QueryAuditStore(store, query)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No matching records")
		return nil
	}
	for _, record := range records {
		fmt.Printf("%s [%s] %s\n", record.Timestamp.Format(time.RFC3339), record.Op, record.Format())
	}
	return nil
}

// handleAuditStats prints audit store statistics.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	store := ctx.GetFlagString("store")
	if store == "" {
		return errors.New(warden.ErrCodeInvalidConfig, "audit stats requires --store pointing to a .db audit store")
	}

	stats, err := warden.StatAuditStore(store)
	if err != nil {
		return err
	}

	fmt.Printf("Total records: %d\n", stats.TotalRecords)
	for op, count := range stats.RecordsByOp {
		fmt.Printf("  %s: %d\n", op, count)
	}
	if stats.OldestRecord != nil {
		fmt.Printf("Oldest: %s\n", stats.OldestRecord.Format(time.RFC3339))
	}
	if stats.NewestRecord != nil {
		fmt.Printf("Newest: %s\n", stats.NewestRecord.Format(time.RFC3339))
	}
	fmt.Printf("Store size: %d bytes\n", stats.StoreSize)
	return nil
}

// handleInfo displays monitor information and diagnostics.
func (m *Manager) handleInfo(ctx *orpheus.Context) error {
	password, err := resolvePassword(ctx)
	if err != nil {
		return err
	}

	monitor, err := openMonitor(ctx, password)
	if err != nil {
		return err
	}
	defer closeMonitor(monitor)

	stats := monitor.Stats()
	fmt.Printf("Warden Filesystem Reference Monitor\n")
	fmt.Printf("Version: 1.0.0\n")
	fmt.Printf("State: %s\n", stats.State)
	fmt.Printf("Protected targets: %d\n", stats.ProtectedCount)
	fmt.Printf("Audit ring: %d buffered, %d processed, %d dropped\n",
		stats.Ring["items_buffered"], stats.Ring["items_processed"], stats.Ring["items_dropped"])
	return nil
}

// handleCompletion generates shell completion scripts.
func (m *Manager) handleCompletion(ctx *orpheus.Context) error {
	shell := ctx.GetArg(0)

	switch shell {
	case "bash":
		fmt.Printf("# Bash completion for warden\n")
		fmt.Printf("# Add to ~/.bashrc: source <(warden completion bash)\n")
		fmt.Printf("_warden_completion() {\n")
		fmt.Printf("  COMPREPLY=($(compgen -W 'state path audit info completion' -- \"${COMP_WORDS[COMP_CWORD]}\"))\n")
		fmt.Printf("}\n")
		fmt.Printf("complete -F _warden_completion warden\n")
	case "zsh":
		fmt.Printf("# Zsh completion for warden\n")
		fmt.Printf("# Add to ~/.zshrc: source <(warden completion zsh)\n")
		fmt.Printf("#compdef warden\n")
		fmt.Printf("_warden() {\n")
		fmt.Printf("  _arguments '1: :(state path audit info completion)'\n")
		fmt.Printf("}\n")
	case "fish":
		fmt.Printf("# Fish completion for warden\n")
		fmt.Printf("complete -c warden -f -a 'state path audit info completion'\n")
	default:
		return errors.New(warden.ErrCodeInvalidConfig, fmt.Sprintf("unsupported shell: %s", shell))
	}

	return nil
}
