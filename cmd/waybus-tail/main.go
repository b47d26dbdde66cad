// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// waybus-tail subscribes to a waybus broadcast socket and prints the
// event stream, one JSON object per event. By default it connects to
// the first broadcast socket from the broker configuration; --socket
// overrides. Positional arguments filter the stream to the named
// event kinds:
//
//	waybus-tail view-focused view-closed
//
// Output is pretty-printed when stdout is a terminal unless --raw.
// When the broker exits, the stream ends and waybus-tail exits with
// it; rerun to resubscribe.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/waybus/waybus/lib/config"
	"github.com/waybus/waybus/lib/version"
)

// maxEventSize bounds a single event line, matching the broker's own
// request limit.
const maxEventSize = 1024 * 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketPath string
	var raw bool

	flagSet := pflag.NewFlagSet("waybus-tail", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "broadcast socket path (default: first socket from the broker config)")
	flagSet.BoolVar(&raw, "raw", false, "print one event per line even on a terminal")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other waybus
	// binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("waybus-tail %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	logger := newCommandLogger()

	if socketPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Broadcast.Sockets) == 0 {
			return errors.New("no broadcast sockets configured; pass --socket")
		}
		socketPath = cfg.Broadcast.Sockets[0]
	}

	filter := make(map[string]bool, flagSet.NArg())
	for _, kind := range flagSet.Args() {
		filter[kind] = true
	}

	pretty := !raw && term.IsTerminal(int(os.Stdout.Fd()))

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()
	logger.Info("subscribed", "socket", socketPath)

	if err := tail(conn, os.Stdout, filter, pretty); err != nil {
		return err
	}
	logger.Info("event stream closed")
	return nil
}

// tail copies newline-delimited events from the broker stream to out
// until the stream ends. An empty filter passes every event; a
// non-empty one passes only events whose kind it names.
func tail(stream io.Reader, out io.Writer, filter map[string]bool, pretty bool) error {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if len(filter) > 0 {
			var header struct {
				Event string `json:"event"`
			}
			if err := json.Unmarshal(line, &header); err != nil || !filter[header.Event] {
				continue
			}
		}

		if pretty {
			var indented bytes.Buffer
			if err := json.Indent(&indented, line, "", "  "); err == nil {
				indented.WriteByte('\n')
				if _, err := out.Write(indented.Bytes()); err != nil {
					return err
				}
				continue
			}
		}
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// newCommandLogger builds the stderr logger: human-readable text on a
// terminal, JSON when piped or redirected.
func newCommandLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `waybus-tail — follow the waybus event stream.

Connects to a waybus broadcast socket and prints each event as a JSON
object. Without arguments every event is printed; positional arguments
restrict output to those event kinds.

Usage:
  waybus-tail [flags] [kind ...]

Examples:
  # Follow every event
  waybus-tail

  # Only window focus and close events
  waybus-tail view-focused view-closed

  # Machine-readable output for piping
  waybus-tail --raw | jq .event

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
