// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package statefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// State is a snapshot of a running broker. Written on every state
// interval and read by external monitors.
type State struct {
	// PID is the broker's process id. GuardStartup probes it to
	// decide whether a previous broker is still running.
	PID int `json:"pid"`

	// StartedAt is when the broker started.
	StartedAt time.Time `json:"started_at"`

	// Backend names the compositor backend ("wayfire", "sway"), or
	// is empty before the first successful connection.
	Backend string `json:"backend,omitempty"`

	// ConnectionState is the connector's current state
	// ("disconnected", "connecting", "connected", "degraded").
	ConnectionState string `json:"connection_state"`

	// Subscribers is the number of connected broadcast clients.
	Subscribers int `json:"subscribers"`

	// EventsDelivered counts events fanned out since startup.
	EventsDelivered uint64 `json:"events_delivered"`

	// UpdatedAt is when this snapshot was written. Check uses it to
	// discard files left behind by a crashed broker.
	UpdatedAt time.Time `json:"updated_at"`
}

// Write writes a state file atomically: the snapshot lands in a
// temporary file in the same directory, gets fsynced, and is renamed
// over the destination, so a reader sees either the old snapshot or
// the new one, never a torn write.
//
// Mode 0600. The parent directory must already exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling broker state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating temporary state file: %w", err)
	}

	// Write, sync, close, in that order. Every failure path removes
	// the temporary file.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary state file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming state file into place: %w", err)
	}

	// The rename itself is only durable once the directory entry is
	// flushed, so sync the parent too.
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}

	return nil
}

// Read parses the state file at path. A missing file surfaces as an
// error wrapping os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return state, nil
}

// Check reads the state file and reports whether it is fresh:
// present, with an UpdatedAt within maxAge of now. Stale and missing
// files both come back as a zero State with false.
//
// Other failures (permission denied, corrupt JSON) return the error
// unchanged, so callers can tell a missing state file from a broken
// one.
func Check(path string, maxAge time.Duration) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	if time.Since(state.UpdatedAt) > maxAge {
		return State{}, false, nil
	}

	return state, true, nil
}

// Clear removes the state file, treating a missing one as already
// cleared.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}

// Alive reports whether a process with the given pid exists. Sending
// signal 0 probes existence without affecting the target; EPERM means
// the process exists but belongs to another user, which still counts
// as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// GuardStartup decides whether a new broker may take over the state
// file path. A fresh file naming a pid that is still alive means
// another broker is running, and GuardStartup returns an error so the
// caller aborts instead of stealing the live broker's sockets. In
// every other case (no file, stale file, dead or recycled pid,
// unreadable file) the file is removed and startup may proceed.
func GuardStartup(path string, maxAge time.Duration) error {
	state, fresh, err := Check(path, maxAge)
	if err != nil {
		// An unreadable state file is treated like a stale one: the
		// broker must be able to start after a crash corrupted it.
		return Clear(path)
	}

	if fresh && state.PID != os.Getpid() && Alive(state.PID) {
		return fmt.Errorf("broker already running (pid %d per %s)", state.PID, path)
	}

	return Clear(path)
}
