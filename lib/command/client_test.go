// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/waybus/waybus/lib/testutil"
)

// startTestServer runs a command server for the duration of the test
// and returns its socket path. Registration happens via the register
// callback before the server starts accepting.
func startTestServer(t *testing.T, register func(*Server)) string {
	t.Helper()

	socketPath := testSocketPath(t)
	server := NewServer(socketPath, testLogger())
	if register != nil {
		register(server)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	waitForSocket(t, socketPath)
	return socketPath
}

func TestClientCallDecodesData(t *testing.T) {
	socketPath := startTestServer(t, func(server *Server) {
		server.Handle("get_status_data", func(ctx context.Context, args []json.RawMessage) (any, error) {
			return map[string]any{
				"backend":     "sway",
				"subscribers": 2,
			}, nil
		})
	})

	client := NewClient(socketPath)

	var status struct {
		Backend     string `json:"backend"`
		Subscribers int    `json:"subscribers"`
	}
	if err := client.Call(testContext(t), "get_status_data", nil, &status); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if status.Backend != "sway" {
		t.Errorf("expected backend=sway, got %q", status.Backend)
	}
	if status.Subscribers != 2 {
		t.Errorf("expected subscribers=2, got %d", status.Subscribers)
	}
}

func TestClientCallSendsArgs(t *testing.T) {
	socketPath := startTestServer(t, func(server *Server) {
		server.Handle("broadcast", func(ctx context.Context, args []json.RawMessage) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expected 1 arg, got %d", len(args))
			}
			var payload map[string]any
			if err := json.Unmarshal(args[0], &payload); err != nil {
				return nil, err
			}
			return map[string]any{"received": payload["event"]}, nil
		})
	})

	client := NewClient(socketPath)

	var reply struct {
		Received string `json:"received"`
	}
	args := []any{map[string]any{"event": "custom-alert", "level": 3}}
	if err := client.Call(testContext(t), "broadcast", args, &reply); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if reply.Received != "custom-alert" {
		t.Errorf("expected received=custom-alert, got %q", reply.Received)
	}
}

func TestClientCallNilResult(t *testing.T) {
	socketPath := startTestServer(t, func(server *Server) {
		server.Handle("reconnect", func(ctx context.Context, args []json.RawMessage) (any, error) {
			return nil, nil
		})
	})

	client := NewClient(socketPath)
	if err := client.Call(testContext(t), "reconnect", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestClientCallServerError(t *testing.T) {
	socketPath := startTestServer(t, func(server *Server) {
		server.Handle("fail", func(ctx context.Context, args []json.RawMessage) (any, error) {
			return nil, fmt.Errorf("backend unavailable")
		})
	})

	client := NewClient(socketPath)
	err := client.Call(testContext(t), "fail", nil, nil)
	if err == nil {
		t.Fatal("expected error from failing handler")
	}

	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		t.Fatalf("expected *CommandError, got %T: %v", err, err)
	}
	if commandErr.Command != "fail" {
		t.Errorf("expected command=fail, got %q", commandErr.Command)
	}
	if commandErr.Message != "Handler error: backend unavailable" {
		t.Errorf("unexpected message: %q", commandErr.Message)
	}
}

func TestClientCallUnknownCommand(t *testing.T) {
	socketPath := startTestServer(t, nil)

	client := NewClient(socketPath)
	err := client.Call(testContext(t), "nope", nil, nil)

	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		t.Fatalf("expected *CommandError, got %T: %v", err, err)
	}
	if commandErr.Message != "Unknown command: nope" {
		t.Errorf("unexpected message: %q", commandErr.Message)
	}
}

func TestClientCallConnectFailure(t *testing.T) {
	client := NewClient(filepath.Join(testutil.SocketDir(t), "absent.sock"))

	err := client.Call(testContext(t), "get_status_data", nil, nil)
	if err == nil {
		t.Fatal("expected error when no server is listening")
	}

	// Transport failures are plain errors, not server-side command
	// failures.
	var commandErr *CommandError
	if errors.As(err, &commandErr) {
		t.Errorf("expected plain transport error, got *CommandError: %v", err)
	}
}
