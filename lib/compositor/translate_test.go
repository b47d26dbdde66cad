// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"reflect"
	"testing"
)

func TestTranslateSwayWindowEvents(t *testing.T) {
	container := map[string]any{
		"type":  "con",
		"name":  "editor",
		"appid": "code",
	}
	floating := map[string]any{
		"type": "floating_con",
		"name": "picture-in-picture",
	}

	tests := []struct {
		name      string
		change    string
		container map[string]any
		wantKind  Kind
	}{
		{"focus tiled", "focus", container, KindViewFocused},
		{"focus floating", "focus", floating, KindViewFocused},
		{"new", "new", container, KindViewMapped},
		{"title", "title", container, KindViewTitleChanged},
		{"close tiled", "close", container, KindViewClosed},
		{"close floating", "close", floating, KindViewClosed},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			raw := RawEvent{"change": test.change, "container": test.container}
			event, ok := Translate(BackendSway, raw)
			if !ok {
				t.Fatalf("Translate returned no event for change %q", test.change)
			}
			if event.Kind != test.wantKind {
				t.Fatalf("kind = %q, want %q", event.Kind, test.wantKind)
			}
			view, ok := event.Payload["view"].(map[string]any)
			if !ok {
				t.Fatalf("payload has no \"view\" object: %v", event.Payload)
			}
			if !reflect.DeepEqual(view, test.container) {
				t.Fatalf("view = %v, want %v", view, test.container)
			}
		})
	}
}

func TestTranslateSwayWorkspaceLoseFocus(t *testing.T) {
	old := map[string]any{"type": "workspace", "name": "2"}
	raw := RawEvent{
		"change":  "focus",
		"current": map[string]any{"type": "workspace", "name": "3"},
		"old":     old,
	}

	event, ok := Translate(BackendSway, raw)
	if !ok {
		t.Fatal("Translate returned no event for workspace focus change")
	}
	if event.Kind != KindWorkspaceLoseFocus {
		t.Fatalf("kind = %q, want %q", event.Kind, KindWorkspaceLoseFocus)
	}
	workspace, ok := event.Payload["workspace"].(map[string]any)
	if !ok {
		t.Fatalf("payload has no \"workspace\" object: %v", event.Payload)
	}
	if !reflect.DeepEqual(workspace, old) {
		t.Fatalf("workspace = %v, want %v", workspace, old)
	}
}

func TestTranslateSwayWorkspaceArmWinsOverContainer(t *testing.T) {
	// A message carrying both a qualifying container and an old
	// workspace resolves to workspace-lose-focus.
	raw := RawEvent{
		"change":    "focus",
		"container": map[string]any{"type": "con", "name": "editor"},
		"old":       map[string]any{"type": "workspace", "name": "1"},
	}

	event, ok := Translate(BackendSway, raw)
	if !ok {
		t.Fatal("Translate returned no event")
	}
	if event.Kind != KindWorkspaceLoseFocus {
		t.Fatalf("kind = %q, want %q", event.Kind, KindWorkspaceLoseFocus)
	}
}

func TestTranslateSwayMisses(t *testing.T) {
	// Most raw traffic is expected to be filtered; none of these are
	// errors.
	tests := []struct {
		name string
		raw  RawEvent
	}{
		{"unknown change", RawEvent{"change": "unknown"}},
		{"no container or old", RawEvent{"change": "focus"}},
		{"container of wrong type", RawEvent{
			"change":    "focus",
			"container": map[string]any{"type": "workspace"},
		}},
		{"unknown change with container", RawEvent{
			"change":    "urgent",
			"container": map[string]any{"type": "con"},
		}},
		{"old is not a workspace", RawEvent{
			"change": "focus",
			"old":    map[string]any{"type": "con"},
		}},
		{"old workspace without focus change", RawEvent{
			"change": "rename",
			"old":    map[string]any{"type": "workspace"},
		}},
		{"container is not an object", RawEvent{
			"change":    "focus",
			"container": "editor",
		}},
		{"empty", RawEvent{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if event, ok := Translate(BackendSway, test.raw); ok {
				t.Fatalf("Translate = %v, want miss", event)
			}
		})
	}
}

func TestTranslateWayfirePassThrough(t *testing.T) {
	raw := RawEvent{
		"event": "view-mapped",
		"view":  map[string]any{"id": float64(7), "title": "terminal"},
	}

	event, ok := Translate(BackendWayfire, raw)
	if !ok {
		t.Fatal("Translate returned no event for canonical-shaped input")
	}
	if event.Kind != KindViewMapped {
		t.Fatalf("kind = %q, want %q", event.Kind, KindViewMapped)
	}
	if !reflect.DeepEqual(event.Payload["view"], raw["view"]) {
		t.Fatalf("payload view = %v, want %v", event.Payload["view"], raw["view"])
	}
	if _, present := event.Payload["event"]; present {
		t.Fatal("payload retained the \"event\" field")
	}
}

func TestTranslateWayfireNativeKindsFlowThrough(t *testing.T) {
	// Kinds outside the translator's own vocabulary pass through
	// unchanged.
	raw := RawEvent{"event": "wset-workspace-changed", "wset-data": map[string]any{}}

	event, ok := Translate(BackendWayfire, raw)
	if !ok {
		t.Fatal("Translate returned no event")
	}
	if event.Kind != Kind("wset-workspace-changed") {
		t.Fatalf("kind = %q, want wset-workspace-changed", event.Kind)
	}
}

func TestTranslateWayfireMisses(t *testing.T) {
	tests := []struct {
		name string
		raw  RawEvent
	}{
		{"no event field", RawEvent{"result": "ok"}},
		{"empty event field", RawEvent{"event": ""}},
		{"non-string event field", RawEvent{"event": float64(3)}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if event, ok := Translate(BackendWayfire, test.raw); ok {
				t.Fatalf("Translate = %v, want miss", event)
			}
		})
	}
}

func TestTranslateUnknownBackendAlwaysMisses(t *testing.T) {
	raw := RawEvent{"event": "view-focused"}
	if event, ok := Translate(BackendUnknown, raw); ok {
		t.Fatalf("Translate = %v, want miss for unknown backend", event)
	}
}
