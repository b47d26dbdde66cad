// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
)

// wayfireWatchMethod subscribes a connection to the compositor's event
// stream. Issued once, immediately after connecting.
const wayfireWatchMethod = "window-rules/events/watch"

// maxWayfireMessage caps a single message size. View lists on large
// sessions run to a few hundred KB; anything near this limit is a
// corrupt length prefix.
const maxWayfireMessage = 16 * 1024 * 1024

// wayfireConn speaks the wayfire IPC protocol: every message in both
// directions is a 4-byte little-endian length prefix followed by a
// JSON document.
type wayfireConn struct {
	socket net.Conn
}

func newWayfireConn(socket net.Conn) (*wayfireConn, error) {
	conn := &wayfireConn{socket: socket}
	watch := map[string]any{"method": wayfireWatchMethod, "data": map[string]any{}}
	if err := conn.writeMessage(watch); err != nil {
		socket.Close()
		return nil, fmt.Errorf("%w: watch request: %v", ErrUnreachable, err)
	}
	reply, err := conn.readMessage()
	if err != nil {
		socket.Close()
		return nil, fmt.Errorf("%w: watch reply: %v", ErrUnreachable, err)
	}
	if result, _ := reply["result"].(string); result != "ok" {
		socket.Close()
		return nil, fmt.Errorf("%w: watch rejected: %v", ErrUnreachable, reply)
	}
	return conn, nil
}

func (c *wayfireConn) Backend() Backend { return BackendWayfire }

// ReadEvent returns the next message carrying an "event" field.
// Method replies arriving on the same connection are skipped.
func (c *wayfireConn) ReadEvent() (RawEvent, error) {
	for {
		message, err := c.readMessage()
		if err != nil {
			return nil, err
		}
		if _, ok := message["event"]; ok {
			return RawEvent(message), nil
		}
	}
}

func (c *wayfireConn) Close() error { return c.socket.Close() }

func (c *wayfireConn) writeMessage(message map[string]any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := c.socket.Write(header[:]); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if _, err := c.socket.Write(payload); err != nil {
		return fmt.Errorf("write message payload: %w", err)
	}
	return nil
}

func (c *wayfireConn) readMessage() (map[string]any, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.socket, header[:]); err != nil {
		return nil, fmt.Errorf("read message header: %w", err)
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length > maxWayfireMessage {
		return nil, fmt.Errorf("message length %d exceeds maximum %d", length, maxWayfireMessage)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.socket, payload); err != nil {
		return nil, fmt.Errorf("read message payload: %w", err)
	}
	var message map[string]any
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return message, nil
}
