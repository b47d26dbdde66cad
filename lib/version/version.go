// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags at release build time. Development builds that
// skip the injection fall back to the module build info stamped by
// the Go toolchain.
var (
	// Version is the release version, set manually when tagging.
	Version = "0.1.0-dev"

	// GitCommit is the short git revision of the build.
	GitCommit = ""
)

// Info returns the one-line string the binaries print for --version:
// the version followed by the revision it was built from.
func Info() string {
	return fmt.Sprintf("%s (%s)", Version, revision())
}

// Full returns Info plus the Go toolchain and platform, for bug
// reports.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// revision resolves the build revision: the injected commit when
// present, otherwise the VCS stamp from the build info, otherwise
// "unknown" (tests and go run).
func revision() string {
	if GitCommit != "" {
		return GitCommit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	commit := ""
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if commit == "" {
		return "unknown"
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if dirty {
		commit += "-dirty"
	}
	return commit
}
