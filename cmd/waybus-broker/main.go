// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/waybus/waybus/lib/clock"
	"github.com/waybus/waybus/lib/compositor"
	"github.com/waybus/waybus/lib/config"
	"github.com/waybus/waybus/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "",
		"path to the broker config file (default: $WAYBUS_CONFIG, else built-in defaults)")
	logLevel := flag.String("log-level", "",
		"override the configured log level (debug|info|warn|error)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("waybus-broker %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureRuntimeDir(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker := newBroker(cfg, compositorDialer(cfg), clock.Real(), logger)
	return broker.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// compositorDialer builds the production dialer: the configured
// socket path when set, environment discovery otherwise. Discovery
// runs per attempt so a compositor started after the broker is still
// found.
func compositorDialer(cfg *config.Config) func() (compositor.Conn, error) {
	return func() (compositor.Conn, error) {
		socket := cfg.Compositor.Socket
		if socket == "" {
			discovered, err := compositor.DiscoverSocket()
			if err != nil {
				return nil, err
			}
			socket = discovered
		}
		return compositor.Dial(socket)
	}
}
