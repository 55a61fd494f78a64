// wardend: long-running Warden reference monitor daemon
//
// Resolves configuration from flags, environment and an optional
// configuration file, starts the monitor with the configured protected
// paths, and runs until interrupted.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agilira/warden"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wardend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cm := warden.NewConfigManager("wardend").
		SetDescription("Warden filesystem reference monitor daemon").
		SetVersion("1.0.0")

	if err := cm.ParseArgs(); err != nil {
		cm.PrintUsage()
		return err
	}

	config, fileConfig, err := cm.ResolveConfig()
	if err != nil {
		return err
	}

	if result := warden.ValidateConfig(config); !result.Valid {
		return fmt.Errorf("invalid configuration:\n%s", result.String())
	}

	password, err := cm.ResolvePassword()
	if err != nil {
		return err
	}

	monitor, err := warden.New(password, config)
	if err != nil {
		return err
	}
	monitor.Start()
	defer func() {
		if err := monitor.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "wardend: shutdown error: %v\n", err)
		}
	}()

	if fileConfig != nil {
		if err := fileConfig.RegisterProtectedPaths(monitor, password); err != nil {
			return err
		}
	}

	fmt.Printf("wardend: monitor running, state=%s, protected paths=%d\n",
		monitor.State(), monitor.Stats().ProtectedCount)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Printf("wardend: received %s, shutting down\n", sig)
	return nil
}
