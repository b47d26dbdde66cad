// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
)

// i3 IPC framing constants. Each message is the 6-byte magic, a uint32
// little-endian payload length, a uint32 little-endian message type,
// then the payload. Asynchronous events set the high bit of the type.
var i3Magic = []byte("i3-ipc")

const (
	i3HeaderLength     = 14
	i3MessageSubscribe = 2
	i3EventFlag        = 0x80000000

	maxSwayMessage = 16 * 1024 * 1024
)

// swaySubscriptions is the event set the broker consumes: window
// events for view lifecycle, workspace events for focus moves.
var swaySubscriptions = []string{"window", "workspace"}

// swayConn speaks the i3 IPC protocol sway inherits.
type swayConn struct {
	socket net.Conn
}

func newSwayConn(socket net.Conn) (*swayConn, error) {
	conn := &swayConn{socket: socket}
	payload, err := json.Marshal(swaySubscriptions)
	if err != nil {
		socket.Close()
		return nil, fmt.Errorf("encode subscription list: %w", err)
	}
	if err := conn.writeMessage(i3MessageSubscribe, payload); err != nil {
		socket.Close()
		return nil, fmt.Errorf("%w: subscribe request: %v", ErrUnreachable, err)
	}
	messageType, reply, err := conn.readMessage()
	if err != nil {
		socket.Close()
		return nil, fmt.Errorf("%w: subscribe reply: %v", ErrUnreachable, err)
	}
	if messageType != i3MessageSubscribe {
		socket.Close()
		return nil, fmt.Errorf("%w: unexpected reply type %d to subscribe", ErrUnreachable, messageType)
	}
	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(reply, &result); err != nil || !result.Success {
		socket.Close()
		return nil, fmt.Errorf("%w: subscribe rejected: %s", ErrUnreachable, reply)
	}
	return conn, nil
}

func (c *swayConn) Backend() Backend { return BackendSway }

// ReadEvent returns the payload of the next message whose type has the
// event flag set. Request replies on the same connection are skipped.
func (c *swayConn) ReadEvent() (RawEvent, error) {
	for {
		messageType, payload, err := c.readMessage()
		if err != nil {
			return nil, err
		}
		if messageType&i3EventFlag == 0 {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode event payload: %w", err)
		}
		return RawEvent(raw), nil
	}
}

func (c *swayConn) Close() error { return c.socket.Close() }

func (c *swayConn) writeMessage(messageType uint32, payload []byte) error {
	header := make([]byte, i3HeaderLength)
	copy(header[0:6], i3Magic)
	binary.LittleEndian.PutUint32(header[6:10], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[10:14], messageType)
	if _, err := c.socket.Write(header); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := c.socket.Write(payload); err != nil {
			return fmt.Errorf("write message payload: %w", err)
		}
	}
	return nil
}

func (c *swayConn) readMessage() (uint32, []byte, error) {
	header := make([]byte, i3HeaderLength)
	if _, err := io.ReadFull(c.socket, header); err != nil {
		return 0, nil, fmt.Errorf("read message header: %w", err)
	}
	if !bytes.Equal(header[0:6], i3Magic) {
		return 0, nil, fmt.Errorf("bad magic %q in message header", header[0:6])
	}
	length := binary.LittleEndian.Uint32(header[6:10])
	messageType := binary.LittleEndian.Uint32(header[10:14])
	if length > maxSwayMessage {
		return 0, nil, fmt.Errorf("message length %d exceeds maximum %d", length, maxSwayMessage)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.socket, payload); err != nil {
			return 0, nil, fmt.Errorf("read message payload: %w", err)
		}
	}
	return messageType, payload, nil
}
