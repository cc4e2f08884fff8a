// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/traveller/services/traveller/config"
	"github.com/AleutianAI/traveller/services/traveller/telemetry"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	clientAddr     string
	clientUsername string
	clientSession  string

	// level is shared by every logger so it can change at runtime.
	level = new(slog.LevelVar)
)

var (
	rootCmd = &cobra.Command{
		Use:   "traveller",
		Short: "Check whether characters can travel between towns without meeting anyone",
		Long: `Traveller builds networks of towns joined by roads, places characters
in towns, and answers whether a character can reach a town without
passing through an occupied one.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the traveller HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	runCmd = &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a JSON command stream from a file or stdin",
		Long: `Reads JSON commands such as
  {"command":"roads","params":[{"from":"A","to":"B"}]}
  {"command":"place","params":{"character":"Hero","town":"A"}}
  {"command":"passage-safe?","params":{"character":"Hero","town":"B"}}
and prints one JSON response per line. Exits non-zero on the first
protocol error.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun, // Defined in cmd_run.go
	}

	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "Interactive client for a running traveller server",
		Args:  cobra.NoArgs,
		RunE:  runClient, // Defined in cmd_client.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from config or "+config.EnvLogLevel+")")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "Log format: auto, text, or json")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file; reloaded on change")

	rootCmd.AddCommand(runCmd)

	rootCmd.AddCommand(clientCmd)
	clientCmd.Flags().StringVar(&clientAddr, "addr", "localhost:8090", "Server address (host:port or ws:// URL)")
	clientCmd.Flags().StringVarP(&clientUsername, "username", "u", os.Getenv("USER"), "Username for a new session")
	clientCmd.Flags().StringVar(&clientSession, "session", "", "Attach to an existing session ID instead of creating one")
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(cmd *cobra.Command, args []string) error {
	name := logLevel
	if name == "" {
		name = os.Getenv(config.EnvLogLevel)
	}
	level.Set(telemetry.ParseLevel(name))
	slog.SetDefault(telemetry.NewLogger(os.Stderr, level, useText(logFormat, os.Stderr.Fd())))
	return nil
}

// useText reports whether logs on fd should be human-readable text.
func useText(format string, fd uintptr) bool {
	switch format {
	case "text":
		return true
	case "json":
		return false
	default:
		return isTerminal(fd)
	}
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
