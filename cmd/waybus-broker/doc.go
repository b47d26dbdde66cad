// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

// Waybus-broker is the compositor event broker. It holds the single
// authoritative connection to the compositor's IPC socket (Wayfire or
// Sway), translates native events into the canonical waybus schema,
// and fans them out to any number of subscribers over Unix domain
// sockets. A separate control socket answers commands.
//
// Data flow:
//
//	compositor IPC → connector → translate → queue → broadcast loop → subscribers
//
// The connector owns the compositor handle exclusively. When the
// connection drops it reconnects on a fixed backoff; a change to the
// watched compositor config file forces an immediate reconnect,
// bypassing any wait. Subscribers never talk back on the event
// sockets; the control socket carries the request/response traffic
// (get_status_data, get_config_data, broadcast, list_commands).
//
// The broker periodically records its pid and counters in a state
// file so external monitors can check on it without opening a
// connection, and refuses to start while that file names a broker
// that is still alive.
package main
