// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import "testing"

func TestDetectBackend(t *testing.T) {
	tests := []struct {
		path string
		want Backend
	}{
		{"/run/user/1000/wayfire-wayland-1.socket", BackendWayfire},
		{"/run/user/1000/sway-ipc.1000.2215.sock", BackendSway},
		{"/tmp/WAYFIRE.sock", BackendWayfire},
		{"/run/user/1000/wayland-1", BackendUnknown},
		{"", BackendUnknown},
	}
	for _, test := range tests {
		if got := DetectBackend(test.path); got != test.want {
			t.Errorf("DetectBackend(%q) = %v, want %v", test.path, got, test.want)
		}
	}
}

func TestBackendString(t *testing.T) {
	tests := []struct {
		backend Backend
		want    string
	}{
		{BackendWayfire, "wayfire"},
		{BackendSway, "sway"},
		{BackendUnknown, "unknown"},
	}
	for _, test := range tests {
		if got := test.backend.String(); got != test.want {
			t.Errorf("String() = %q, want %q", got, test.want)
		}
	}
}

func TestDiscoverSocketPrefersWayfire(t *testing.T) {
	t.Setenv("WAYFIRE_SOCKET", "/run/user/1000/wayfire-wayland-1.socket")
	t.Setenv("SWAYSOCK", "/run/user/1000/sway-ipc.sock")

	path, err := DiscoverSocket()
	if err != nil {
		t.Fatalf("DiscoverSocket: %v", err)
	}
	if path != "/run/user/1000/wayfire-wayland-1.socket" {
		t.Fatalf("path = %q, want the wayfire socket", path)
	}
}

func TestDiscoverSocketFallsBackToSway(t *testing.T) {
	t.Setenv("WAYFIRE_SOCKET", "")
	t.Setenv("SWAYSOCK", "/run/user/1000/sway-ipc.sock")

	path, err := DiscoverSocket()
	if err != nil {
		t.Fatalf("DiscoverSocket: %v", err)
	}
	if path != "/run/user/1000/sway-ipc.sock" {
		t.Fatalf("path = %q, want the sway socket", path)
	}
}

func TestDiscoverSocketErrorsWhenUnset(t *testing.T) {
	t.Setenv("WAYFIRE_SOCKET", "")
	t.Setenv("SWAYSOCK", "")

	if path, err := DiscoverSocket(); err == nil {
		t.Fatalf("DiscoverSocket = %q, want error", path)
	}
}
