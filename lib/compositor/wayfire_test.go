// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package compositor

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/waybus/waybus/lib/testutil"
)

const testTimeout = 5 * time.Second

// writeWayfireFrame emits one length-prefixed JSON message on conn.
// Safe to call from a server goroutine; failures are reported with
// Errorf.
func writeWayfireFrame(t *testing.T, conn net.Conn, message map[string]any) {
	t.Helper()
	payload, err := json.Marshal(message)
	if err != nil {
		t.Errorf("encode frame: %v", err)
		return
	}
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := conn.Write(header[:]); err != nil {
		t.Errorf("write frame header: %v", err)
		return
	}
	if _, err := conn.Write(payload); err != nil {
		t.Errorf("write frame payload: %v", err)
	}
}

// readWayfireFrame reads one length-prefixed JSON message from conn.
func readWayfireFrame(t *testing.T, conn net.Conn) map[string]any {
	t.Helper()
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		t.Errorf("read frame header: %v", err)
		return nil
	}
	payload := make([]byte, binary.LittleEndian.Uint32(header[:]))
	if _, err := io.ReadFull(conn, payload); err != nil {
		t.Errorf("read frame payload: %v", err)
		return nil
	}
	var message map[string]any
	if err := json.Unmarshal(payload, &message); err != nil {
		t.Errorf("decode frame: %v", err)
		return nil
	}
	return message
}

// connPipe returns a connected pipe with deadlines set so that a
// stuck handshake fails the test instead of hanging it.
func connPipe(t *testing.T) (client, server net.Conn) {
	t.Helper()
	client, server = net.Pipe()
	deadline := time.Now().Add(testTimeout)
	_ = client.SetDeadline(deadline)
	_ = server.SetDeadline(deadline)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestWayfireConnHandshakeAndRead(t *testing.T) {
	clientEnd, serverEnd := connPipe(t)

	go func() {
		request := readWayfireFrame(t, serverEnd)
		if method, _ := request["method"].(string); method != wayfireWatchMethod {
			t.Errorf("watch method = %v, want %s", request["method"], wayfireWatchMethod)
		}
		writeWayfireFrame(t, serverEnd, map[string]any{"result": "ok"})
		writeWayfireFrame(t, serverEnd, map[string]any{
			"event": "view-focused",
			"view":  map[string]any{"id": float64(3)},
		})
	}()

	conn, err := newWayfireConn(clientEnd)
	if err != nil {
		t.Fatalf("newWayfireConn: %v", err)
	}
	if conn.Backend() != BackendWayfire {
		t.Fatalf("Backend() = %v, want wayfire", conn.Backend())
	}

	raw, err := conn.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if raw["event"] != "view-focused" {
		t.Fatalf("event = %v, want view-focused", raw["event"])
	}
}

func TestWayfireConnSkipsMethodReplies(t *testing.T) {
	clientEnd, serverEnd := connPipe(t)

	go func() {
		readWayfireFrame(t, serverEnd)
		writeWayfireFrame(t, serverEnd, map[string]any{"result": "ok"})
		// A stray method reply arrives before the next event.
		writeWayfireFrame(t, serverEnd, map[string]any{"result": "ok", "info": "stray"})
		writeWayfireFrame(t, serverEnd, map[string]any{"event": "view-unmapped"})
	}()

	conn, err := newWayfireConn(clientEnd)
	if err != nil {
		t.Fatalf("newWayfireConn: %v", err)
	}

	raw, err := conn.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if raw["event"] != "view-unmapped" {
		t.Fatalf("event = %v, want view-unmapped (reply not skipped)", raw["event"])
	}
}

func TestWayfireConnWatchRejected(t *testing.T) {
	clientEnd, serverEnd := connPipe(t)

	go func() {
		readWayfireFrame(t, serverEnd)
		writeWayfireFrame(t, serverEnd, map[string]any{"result": "not-allowed"})
	}()

	if _, err := newWayfireConn(clientEnd); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("newWayfireConn error = %v, want ErrUnreachable", err)
	}
}

func TestWayfireConnCloseUnblocksRead(t *testing.T) {
	clientEnd, serverEnd := connPipe(t)

	go func() {
		readWayfireFrame(t, serverEnd)
		writeWayfireFrame(t, serverEnd, map[string]any{"result": "ok"})
	}()

	conn, err := newWayfireConn(clientEnd)
	if err != nil {
		t.Fatalf("newWayfireConn: %v", err)
	}

	readResult := make(chan error, 1)
	go func() {
		_, err := conn.ReadEvent()
		readResult <- err
	}()

	conn.Close()

	if err := testutil.RequireReceive(t, readResult, testTimeout, "pending read to fail"); err == nil {
		t.Fatal("ReadEvent succeeded after Close")
	}
}

func TestWayfireConnRejectsOversizedMessage(t *testing.T) {
	clientEnd, serverEnd := connPipe(t)

	go func() {
		readWayfireFrame(t, serverEnd)
		writeWayfireFrame(t, serverEnd, map[string]any{"result": "ok"})
		// A corrupt length prefix claiming more than the cap.
		var header [4]byte
		binary.LittleEndian.PutUint32(header[:], maxWayfireMessage+1)
		if _, err := serverEnd.Write(header[:]); err != nil {
			t.Errorf("write corrupt header: %v", err)
		}
	}()

	conn, err := newWayfireConn(clientEnd)
	if err != nil {
		t.Fatalf("newWayfireConn: %v", err)
	}

	if _, err := conn.ReadEvent(); err == nil {
		t.Fatal("ReadEvent accepted an oversized message")
	}
}
