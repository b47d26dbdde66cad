// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// waybus-call sends one command to the waybus control socket and
// prints the reply:
//
//	waybus-call get_status_data
//	waybus-call broadcast '{"event": "custom-note", "text": "hi"}'
//
// Each positional argument after the command name is decoded as JSON
// when it parses, and passed as a bare string otherwise. The exit
// status is 0 when the broker answers ok, 1 on an error reply or a
// transport failure.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/waybus/waybus/lib/command"
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
	var socketPath string

	flagSet := pflag.NewFlagSet("waybus-call", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "control socket path (default: from the broker config)")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other waybus
	// binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("waybus-call %s\n", version.Info())
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

	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return errors.New("command name required")
	}

	if socketPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Control.Socket == "" {
			return errors.New("no control socket configured; pass --socket")
		}
		socketPath = cfg.Control.Socket
	}

	pretty := term.IsTerminal(int(os.Stdout.Fd()))
	return call(socketPath, args[0], args[1:], os.Stdout, pretty)
}

// call sends the command with its decoded arguments and writes the
// reply data to out, or "ok" when the reply carries none.
func call(socketPath string, name string, rawArgs []string, out io.Writer, pretty bool) error {
	args := make([]any, 0, len(rawArgs))
	for _, raw := range rawArgs {
		args = append(args, decodeArg(raw))
	}

	client := command.NewClient(socketPath)
	var data json.RawMessage
	if err := client.Call(context.Background(), name, args, &data); err != nil {
		return err
	}

	if len(data) == 0 {
		_, err := fmt.Fprintln(out, "ok")
		return err
	}
	if pretty {
		var indented bytes.Buffer
		if err := json.Indent(&indented, data, "", "  "); err == nil {
			indented.WriteByte('\n')
			_, err := out.Write(indented.Bytes())
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%s\n", data)
	return err
}

// decodeArg interprets a positional argument as JSON when it parses,
// and as a bare string otherwise. "7" stays a number and "true" a
// boolean; quote them to force strings.
func decodeArg(arg string) any {
	var value any
	if err := json.Unmarshal([]byte(arg), &value); err == nil {
		return value
	}
	return arg
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `waybus-call — send one command to the waybus broker.

Sends a command over the control socket and prints the reply data.
Arguments after the command name are decoded as JSON when they parse
(numbers, booleans, objects, arrays) and sent as strings otherwise.

Usage:
  waybus-call [flags] <command> [args...]

Examples:
  # List the commands the broker accepts
  waybus-call list_commands

  # Inspect broker status
  waybus-call get_status_data

  # Inject an event into the broadcast stream
  waybus-call broadcast '{"event": "custom-note", "text": "hello"}'

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
