// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/waybus/waybus/lib/broadcast"
	"github.com/waybus/waybus/lib/clock"
	"github.com/waybus/waybus/lib/command"
	"github.com/waybus/waybus/lib/compositor"
	"github.com/waybus/waybus/lib/config"
	"github.com/waybus/waybus/lib/configwatch"
	"github.com/waybus/waybus/lib/connector"
	"github.com/waybus/waybus/lib/statefile"
)

// stateInterval is how often the broker rewrites its state file.
const stateInterval = 15 * time.Second

// stateMaxAge is how old a state file may be and still describe a
// live broker: three missed intervals.
const stateMaxAge = 3 * stateInterval

// Broker wires the connector, event queue, broadcast server, command
// server, config watcher, and state file into one lifecycle. Created
// by newBroker and driven by Run.
type Broker struct {
	cfg    *config.Config
	clk    clock.Clock
	logger *slog.Logger

	queue     *broadcast.Queue
	broadcast *broadcast.Server
	connector *connector.Connector
	commands  *command.Server

	startedAt time.Time
}

func newBroker(cfg *config.Config, dial connector.Dialer, clk clock.Clock, logger *slog.Logger) *Broker {
	queue := broadcast.NewQueue()

	broker := &Broker{
		cfg:       cfg,
		clk:       clk,
		logger:    logger,
		queue:     queue,
		broadcast: broadcast.NewServer(cfg.Broadcast.Sockets, queue, logger),
		connector: connector.New(dial, queue, clk, logger),
		commands:  command.NewServer(cfg.Control.Socket, logger),
		startedAt: clk.Now(),
	}
	broker.connector.ReconnectBackoff = cfg.ReconnectBackoff()
	broker.connector.ReadRetryDelay = cfg.ReadRetryDelay()

	broker.registerCommands()
	return broker
}

// Run starts every broker component and blocks until ctx is
// cancelled or a component fails fatally. A broadcast or control
// socket that cannot be bound is fatal; a config watcher that cannot
// be set up is not (the broker still reconnects on stream liveness
// alone).
func (b *Broker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if b.cfg.StateFile != "" {
		if err := statefile.GuardStartup(b.cfg.StateFile, stateMaxAge); err != nil {
			return err
		}
	}

	// Socket servers first. Either failing to bind cancels the rest.
	broadcastDone := make(chan error, 1)
	go func() {
		err := b.broadcast.Run(ctx)
		if err != nil {
			cancel()
		}
		broadcastDone <- err
	}()

	commandDone := make(chan error, 1)
	go func() {
		err := b.commands.Serve(ctx)
		if err != nil {
			cancel()
		}
		commandDone <- err
	}()

	connectorDone := make(chan error, 1)
	go func() {
		connectorDone <- b.connector.Run(ctx)
	}()

	if b.cfg.Compositor.ConfigFile != "" {
		stopWatch, err := configwatch.Watch(b.cfg.Compositor.ConfigFile, b.connector.ForceReconnect, b.logger)
		if err != nil {
			b.logger.Warn("config watcher unavailable, relying on stream liveness alone",
				"path", b.cfg.Compositor.ConfigFile,
				"error", err,
			)
		} else {
			defer stopWatch()
		}
	}

	var stateWg sync.WaitGroup
	if b.cfg.StateFile != "" {
		b.writeState()
		stateWg.Add(1)
		go func() {
			defer stateWg.Done()
			b.runStateLoop(ctx)
		}()
	}

	b.logger.Info("waybus broker running",
		"pid", os.Getpid(),
		"broadcast_sockets", b.cfg.Broadcast.Sockets,
		"control_socket", b.cfg.Control.Socket,
		"state_file", b.cfg.StateFile,
	)

	<-ctx.Done()
	b.logger.Info("shutting down")

	var errs []error
	if err := <-broadcastDone; err != nil {
		errs = append(errs, err)
	}
	if err := <-commandDone; err != nil {
		errs = append(errs, err)
	}
	if err := <-connectorDone; err != nil {
		errs = append(errs, err)
	}
	stateWg.Wait()

	if b.cfg.StateFile != "" {
		if err := statefile.Clear(b.cfg.StateFile); err != nil {
			b.logger.Warn("state file cleanup failed", "error", err)
		}
	}

	return errors.Join(errs...)
}

// runStateLoop rewrites the state file every stateInterval until ctx
// is cancelled.
func (b *Broker) runStateLoop(ctx context.Context) {
	ticker := b.clk.NewTicker(stateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.writeState()
		}
	}
}

// writeState records the broker's current snapshot. Failures are
// logged and skipped; the next interval retries.
func (b *Broker) writeState() {
	state := statefile.State{
		PID:             os.Getpid(),
		StartedAt:       b.startedAt,
		ConnectionState: b.connector.State().String(),
		Subscribers:     b.broadcast.SubscriberCount(),
		EventsDelivered: b.broadcast.DeliveredTotal(),
		UpdatedAt:       b.clk.Now(),
	}
	if backend := b.connector.Backend(); backend != compositor.BackendUnknown {
		state.Backend = backend.String()
	}

	if err := statefile.Write(b.cfg.StateFile, state); err != nil {
		b.logger.Warn("state file write failed",
			"path", b.cfg.StateFile,
			"error", err,
		)
	}
}
