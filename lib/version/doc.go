// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for the waybus
// binaries.
//
// Release builds inject [Version] and [GitCommit] via -ldflags -X:
//
//	go build -ldflags "-X github.com/waybus/waybus/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without the injection (go install, development builds) fall
// back to the VCS revision the Go toolchain stamps into the binary,
// so --version output is meaningful either way.
package version
