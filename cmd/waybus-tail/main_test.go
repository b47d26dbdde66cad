// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"
)

func TestTailPlain(t *testing.T) {
	stream := strings.NewReader(
		`{"event":"view-focused","view":{"id":1}}` + "\n" +
			`{"event":"view-closed","view":{"id":1}}` + "\n")

	var out strings.Builder
	if err := tail(stream, &out, nil, false); err != nil {
		t.Fatalf("tail: %v", err)
	}

	want := `{"event":"view-focused","view":{"id":1}}` + "\n" +
		`{"event":"view-closed","view":{"id":1}}` + "\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestTailFilter(t *testing.T) {
	stream := strings.NewReader(
		`{"event":"view-focused","view":{"id":1}}` + "\n" +
			`{"event":"workspace-activated","workspace":{"x":1}}` + "\n" +
			`{"event":"view-focused","view":{"id":2}}` + "\n")

	var out strings.Builder
	filter := map[string]bool{"view-focused": true}
	if err := tail(stream, &out, filter, false); err != nil {
		t.Fatalf("tail: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "view-focused") {
			t.Errorf("unfiltered line in output: %q", line)
		}
	}
}

func TestTailPretty(t *testing.T) {
	stream := strings.NewReader(`{"event":"view-focused","view":{"id":1}}` + "\n")

	var out strings.Builder
	if err := tail(stream, &out, nil, true); err != nil {
		t.Fatalf("tail: %v", err)
	}

	want := "{\n  \"event\": \"view-focused\",\n  \"view\": {\n    \"id\": 1\n  }\n}\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestTailSkipsBlankLines(t *testing.T) {
	stream := strings.NewReader("\n   \n" + `{"event":"output-added"}` + "\n\n")

	var out strings.Builder
	if err := tail(stream, &out, nil, false); err != nil {
		t.Fatalf("tail: %v", err)
	}

	if out.String() != `{"event":"output-added"}`+"\n" {
		t.Errorf("output = %q, want single event line", out.String())
	}
}

func TestTailPrettyPassesThroughNonJSON(t *testing.T) {
	stream := strings.NewReader("not json\n")

	var out strings.Builder
	if err := tail(stream, &out, nil, true); err != nil {
		t.Fatalf("tail: %v", err)
	}

	if out.String() != "not json\n" {
		t.Errorf("output = %q, want passthrough line", out.String())
	}
}

func TestTailFilterSkipsUndecodableLines(t *testing.T) {
	stream := strings.NewReader("not json\n" + `{"event":"view-focused"}` + "\n")

	var out strings.Builder
	filter := map[string]bool{"view-focused": true}
	if err := tail(stream, &out, filter, false); err != nil {
		t.Fatalf("tail: %v", err)
	}

	if out.String() != `{"event":"view-focused"}`+"\n" {
		t.Errorf("output = %q, want only the decodable matching line", out.String())
	}
}
