// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestEventMarshalFlattensKind(t *testing.T) {
	event := Event{
		Kind: KindViewFocused,
		Payload: map[string]any{
			"view": map[string]any{"id": float64(12), "title": "shell"},
		},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal of wire record: %v", err)
	}
	if flat["event"] != "view-focused" {
		t.Fatalf("wire record event = %v, want view-focused", flat["event"])
	}
	if !reflect.DeepEqual(flat["view"], event.Payload["view"]) {
		t.Fatalf("wire record view = %v, want %v", flat["view"], event.Payload["view"])
	}
}

func TestEventUnmarshalSplitsKind(t *testing.T) {
	line := `{"event":"workspace-lose-focus","workspace":{"name":"2"}}`

	var event Event
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if event.Kind != KindWorkspaceLoseFocus {
		t.Fatalf("kind = %q, want %q", event.Kind, KindWorkspaceLoseFocus)
	}
	if _, present := event.Payload["event"]; present {
		t.Fatal("payload retained the \"event\" field")
	}
	if workspace, ok := event.Payload["workspace"].(map[string]any); !ok || workspace["name"] != "2" {
		t.Fatalf("payload workspace = %v, want name 2", event.Payload["workspace"])
	}
}

func TestEventUnmarshalRejectsMissingKind(t *testing.T) {
	for _, line := range []string{
		`{"view":{"id":1}}`,
		`{"event":""}`,
		`{"event":42}`,
	} {
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err == nil {
			t.Fatalf("Unmarshal(%s) succeeded, want error", line)
		}
	}
}

func TestEventMarshalKindOverridesPayloadCollision(t *testing.T) {
	// A payload field named "event" must not shadow the kind.
	event := Event{
		Kind:    KindViewClosed,
		Payload: map[string]any{"event": "bogus"},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal of wire record: %v", err)
	}
	if flat["event"] != "view-closed" {
		t.Fatalf("wire record event = %v, want view-closed", flat["event"])
	}
}
