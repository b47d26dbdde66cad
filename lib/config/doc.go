// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the waybus
// broker.
//
// A single file holds the whole configuration, named either by the
// WAYBUS_CONFIG environment variable (via [Load]) or by a --config
// flag (via [LoadFile]). When neither names a file the broker runs on
// defaults alone; every setting has a working default. Environment
// variables never override file values. The only expansion performed
// is ${HOME}-style variable substitution on path fields.
//
// Socket and state file paths resolve under RuntimeDir unless
// absolute, so a bare filename like waybus.sock lands in
// $XDG_RUNTIME_DIR (or /tmp when that is unset, matching where
// subscribers look by default).
//
// Key exports:
//
//   - [Config] -- the broker configuration tree
//   - [Default] -- working defaults, runtime dir from the environment
//   - [Load] and [LoadFile] -- environment-driven and flag-driven loading
//
// This package depends on no other waybus packages.
package config
