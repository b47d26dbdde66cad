// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/waybus/waybus/lib/compositor"
)

// registerCommands wires the broker's built-in command set onto the
// control socket.
func (b *Broker) registerCommands() {
	b.commands.Handle("list_commands", b.handleListCommands)
	b.commands.Handle("get_status_data", b.handleStatus)
	b.commands.Handle("get_config_data", b.handleConfig)
	b.commands.Handle("broadcast", b.handleBroadcast)
}

func (b *Broker) handleListCommands(_ context.Context, _ []json.RawMessage) (any, error) {
	return b.commands.Commands(), nil
}

// handleStatus reports the broker's runtime counters and connection
// state for monitors and debugging.
func (b *Broker) handleStatus(_ context.Context, _ []json.RawMessage) (any, error) {
	now := b.clk.Now()
	return map[string]any{
		"pid":               os.Getpid(),
		"started_at":        b.startedAt.UTC().Format(time.RFC3339),
		"uptime_seconds":    int64(now.Sub(b.startedAt).Seconds()),
		"backend":           b.connector.Backend().String(),
		"connection_state":  b.connector.State().String(),
		"broadcast_sockets": b.cfg.Broadcast.Sockets,
		"subscribers":       b.broadcast.SubscriberCount(),
		"events_enqueued":   b.queue.EnqueuedTotal(),
		"events_delivered":  b.broadcast.DeliveredTotal(),
		"events_dropped":    b.connector.DroppedTotal(),
		"current_timestamp": now.Unix(),
	}, nil
}

// handleConfig returns the active configuration after defaulting,
// expansion, and path resolution, which is what the broker actually
// runs on rather than what the file says.
func (b *Broker) handleConfig(_ context.Context, _ []json.RawMessage) (any, error) {
	return b.cfg, nil
}

// handleBroadcast publishes a caller-supplied event to all
// subscribers. The event goes through the same queue as compositor
// events, so it is ordered with them.
func (b *Broker) handleBroadcast(_ context.Context, args []json.RawMessage) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("broadcast requires an event object argument")
	}

	var payload map[string]any
	if err := json.Unmarshal(args[0], &payload); err != nil {
		return nil, fmt.Errorf("event argument must be a JSON object: %w", err)
	}

	kind, _ := payload["event"].(string)
	if kind == "" {
		return nil, fmt.Errorf("event object must carry a non-empty string \"event\" field")
	}
	delete(payload, "event")

	event := compositor.Event{Kind: compositor.Kind(kind), Payload: payload}
	if err := b.broadcast.Publish(event); err != nil {
		return nil, err
	}
	return nil, nil
}
