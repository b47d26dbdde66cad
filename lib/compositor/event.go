// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"encoding/json"
	"fmt"
)

// Kind names a canonical event. The translator produces the closed set
// below; pass-through backends (wayfire) contribute their native kinds
// unchanged, so subscribers must tolerate kinds outside this set.
type Kind string

const (
	// KindViewFocused fires when a view (window) gains focus.
	KindViewFocused Kind = "view-focused"

	// KindViewMapped fires when a new view appears.
	KindViewMapped Kind = "view-mapped"

	// KindViewTitleChanged fires when a view's title changes.
	KindViewTitleChanged Kind = "view-title-changed"

	// KindViewClosed fires when a view is closed.
	KindViewClosed Kind = "view-closed"

	// KindWorkspaceLoseFocus fires when focus moves away from a
	// workspace. The payload carries the workspace that lost focus.
	KindWorkspaceLoseFocus Kind = "workspace-lose-focus"
)

// RawEvent is a backend-specific message as decoded from the
// compositor connection. Its shape varies per backend; the translator
// is the only consumer that inspects it.
type RawEvent map[string]any

// Event is the broker's canonical event: a kind plus the
// backend-supplied payload fields. Every Event handed to the broadcast
// pipeline has a non-empty Kind.
type Event struct {
	Kind    Kind
	Payload map[string]any
}

// MarshalJSON flattens the event into a single object with the kind
// under the "event" key alongside the payload fields. This is the
// broadcast wire shape; one marshaled Event plus a trailing newline is
// one record.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Payload)+1)
	for key, value := range e.Payload {
		flat[key] = value
	}
	flat["event"] = string(e.Kind)
	return json.Marshal(flat)
}

// UnmarshalJSON splits a wire record back into kind and payload.
// Records without a non-empty "event" field are rejected.
func (e *Event) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	kind, _ := flat["event"].(string)
	if kind == "" {
		return fmt.Errorf("event record missing %q field", "event")
	}
	delete(flat, "event")
	e.Kind = Kind(kind)
	e.Payload = flat
	return nil
}
