// Package cli provides the command-line interface for Warden administration.
//
// This package implements the administration surface using the Orpheus
// framework: enforcement state switching, protected-path management and
// audit trail inspection, with git-style subcommands.
//
// Architecture:
// - Manager: CLI orchestration and command routing
// - Handlers: Individual command implementations
// - Utils: Shared helpers for credentials and monitor construction
//
// The CLI administers an in-process monitor; marshalling administration
// commands across a privilege boundary belongs to the embedding host.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager provides CLI operations for Warden administration.
// Built on top of the Orpheus framework for minimal parsing overhead.
type Manager struct {
	app *orpheus.App
}

// NewManager creates the Warden CLI manager with all command groups.
func NewManager() *Manager {
	app := orpheus.New("warden").
		SetDescription("Runtime-switchable filesystem reference monitor").
		SetVersion("1.0.0")

	manager := &Manager{
		app: app,
	}

	manager.setupStateCommands()
	manager.setupPathCommands()
	manager.setupAuditCommands()
	manager.setupUtilityCommands()

	return manager
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// Command Setup Methods

// setupStateCommands configures the 'state' command group.
func (m *Manager) setupStateCommands() {
	stateCmd := orpheus.NewCommand("state", "Enforcement state operations")

	// state switch <off|on|rec-off|rec-on>
	switchCmd := stateCmd.Subcommand("switch", "Switch the enforcement state", m.handleStateSwitch)
	addCredentialFlags(switchCmd)
	addConfigFlag(switchCmd)

	// state show
	showCmd := stateCmd.Subcommand("show", "Show the current enforcement state", m.handleStateShow)
	addCredentialFlags(showCmd)
	addConfigFlag(showCmd)

	m.app.AddCommand(stateCmd)
}

// setupPathCommands configures the 'path' command group for the
// protected-path registry.
func (m *Manager) setupPathCommands() {
	pathCmd := orpheus.NewCommand("path", "Protected-path registry operations")

	// path add <path>
	addCmd := pathCmd.Subcommand("add", "Protect a filesystem target", m.handlePathAdd)
	addCredentialFlags(addCmd)
	addConfigFlag(addCmd)

	// path remove <path>
	removeCmd := pathCmd.Subcommand("remove", "Unprotect a filesystem target", m.handlePathRemove)
	addCredentialFlags(removeCmd)
	addConfigFlag(removeCmd)

	// path list
	listCmd := pathCmd.Subcommand("list", "List protected targets in insertion order", m.handlePathList)
	addCredentialFlags(listCmd)
	addConfigFlag(listCmd)

	m.app.AddCommand(pathCmd)
}

// setupAuditCommands configures the 'audit' command group over the
// SQLite audit store.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit trail management")

	queryCmd := auditCmd.Subcommand("query", "Query denied-operation records", m.handleAuditQuery)
	queryCmd.AddFlag("store", "s", "", "Path to the SQLite audit store (.db)")
	queryCmd.AddFlag("since", "", "24h", "Time range (e.g. 30m, 24h, 168h)")
	queryCmd.AddFlag("op", "o", "", "Operation kind filter (e.g. open-write, rename)")
	queryCmd.AddFlag("path", "p", "", "Pathname filter")
	queryCmd.AddIntFlag("limit", "l", 100, "Maximum results")

	statsCmd := auditCmd.Subcommand("stats", "Show audit store statistics", m.handleAuditStats)
	statsCmd.AddFlag("store", "s", "", "Path to the SQLite audit store (.db)")

	m.app.AddCommand(auditCmd)
}

// setupUtilityCommands configures diagnostics commands.
func (m *Manager) setupUtilityCommands() {
	infoCmd := orpheus.NewCommand("info", "Monitor information and diagnostics")
	infoCmd.SetHandler(m.handleInfo)
	addCredentialFlags(infoCmd)
	addConfigFlag(infoCmd)
	m.app.AddCommand(infoCmd)

	completionCmd := orpheus.NewCommand("completion", "Generate shell completion scripts")
	completionCmd.SetHandler(m.handleCompletion)
	m.app.AddCommand(completionCmd)
}

// addCredentialFlags attaches the shared administration credential flags.
func addCredentialFlags(cmd *orpheus.Command) {
	cmd.AddFlag("password", "", "", "Administration password (prefer --password-file)")
	cmd.AddFlag("password-file", "", "", "File holding the administration password")
}

// addConfigFlag attaches the shared configuration-file flag.
func addConfigFlag(cmd *orpheus.Command) {
	cmd.AddFlag("config", "c", "", "Path to a YAML or JSON configuration file")
}
