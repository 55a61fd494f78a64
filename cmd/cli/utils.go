// Utility functions for the Warden CLI
//
// This file provides helper functions for credential resolution and
// monitor construction shared by all command handlers.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"os"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/warden"
)

// resolvePassword reads the administration password with precedence
// --password-file > --password > WARDEN_ADMIN_PASSWORD.
func resolvePassword(ctx *orpheus.Context) (string, error) {
	if path := ctx.GetFlagString("password-file"); path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied credential file
		if err != nil {
			return "", errors.Wrap(err, warden.ErrCodeInvalidConfig, "failed to read password file")
		}
		return trimTrailingNewlines(string(data)), nil
	}
	if password := ctx.GetFlagString("password"); password != "" {
		return password, nil
	}
	if password := os.Getenv("WARDEN_ADMIN_PASSWORD"); password != "" {
		return password, nil
	}
	return "", errors.New(warden.ErrCodeInvalidConfig,
		"no administration password (use --password-file, --password or WARDEN_ADMIN_PASSWORD)")
}

// openMonitor constructs and starts the monitor the handlers administer,
// from the --config file when given, defaults otherwise.
func openMonitor(ctx *orpheus.Context, password string) (*warden.Monitor, error) {
	config := warden.Config{}

	var fileConfig *warden.FileConfig
	if path := ctx.GetFlagString("config"); path != "" {
		var err error
		fileConfig, err = warden.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		config, err = fileConfig.ToConfig()
		if err != nil {
			return nil, err
		}
	}

	monitor, err := warden.New(password, config)
	if err != nil {
		return nil, err
	}
	monitor.Start()

	if fileConfig != nil {
		if err := fileConfig.RegisterProtectedPaths(monitor, password); err != nil {
			closeMonitor(monitor)
			return nil, err
		}
	}
	return monitor, nil
}

// closeMonitor tears the monitor down, reporting rather than masking
// shutdown failures.
func closeMonitor(monitor *warden.Monitor) {
	if err := monitor.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warden: shutdown error: %v\n", err)
	}
}

func trimTrailingNewlines(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
