// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

// Sway window events carry the subject container under "container";
// workspace focus events carry the previously focused workspace under
// "old". Container types as sway reports them.
const (
	swayContainerTiled    = "con"
	swayContainerFloating = "floating_con"
	swayWorkspaceType     = "workspace"
)

// Translate maps a raw backend event into the canonical schema. The
// second result is false when the raw message carries no user-visible
// semantic; such messages are normal traffic volume and are dropped
// without logging.
//
// Translate is pure: it performs no I/O and mutates no shared state.
// The backend is supplied by the caller so each arm stays
// independently testable.
func Translate(backend Backend, raw RawEvent) (Event, bool) {
	switch backend {
	case BackendWayfire:
		return translateWayfire(raw)
	case BackendSway:
		return translateSway(raw)
	default:
		return Event{}, false
	}
}

// translateWayfire passes events through: wayfire already emits the
// canonical shape, with the kind under the "event" key. Messages
// without a kind (method replies, malformed traffic) are misses.
func translateWayfire(raw RawEvent) (Event, bool) {
	kind, _ := raw["event"].(string)
	if kind == "" {
		return Event{}, false
	}
	payload := make(map[string]any, len(raw)-1)
	for key, value := range raw {
		if key == "event" {
			continue
		}
		payload[key] = value
	}
	return Event{Kind: Kind(kind), Payload: payload}, true
}

// translateSway maps sway's change-descriptor vocabulary onto the
// canonical kinds. Window events are keyed by the container type and
// the "change" field; a focus change away from a workspace is reported
// separately through the "old" entry. When a message matches both
// shapes, the workspace arm wins.
func translateSway(raw RawEvent) (Event, bool) {
	change, _ := raw["change"].(string)

	var event Event
	matched := false

	if container, ok := raw["container"].(map[string]any); ok {
		containerType, _ := container["type"].(string)
		if containerType == swayContainerTiled || containerType == swayContainerFloating {
			switch change {
			case "focus":
				event = Event{Kind: KindViewFocused, Payload: map[string]any{"view": container}}
				matched = true
			case "new":
				event = Event{Kind: KindViewMapped, Payload: map[string]any{"view": container}}
				matched = true
			case "title":
				event = Event{Kind: KindViewTitleChanged, Payload: map[string]any{"view": container}}
				matched = true
			case "close":
				event = Event{Kind: KindViewClosed, Payload: map[string]any{"view": container}}
				matched = true
			}
		}
	}

	if old, ok := raw["old"].(map[string]any); ok && change == "focus" {
		if oldType, _ := old["type"].(string); oldType == swayWorkspaceType {
			event = Event{Kind: KindWorkspaceLoseFocus, Payload: map[string]any{"workspace": old}}
			matched = true
		}
	}

	return event, matched
}
