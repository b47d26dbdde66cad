// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// dialTimeout bounds the connect phase only; waiting for the reply
// has its own deadline.
const dialTimeout = 5 * time.Second

// responseReadTimeout bounds how long a written request may go
// unanswered before Call gives up.
const responseReadTimeout = 10 * time.Second

// maxResponseSize caps a single response line, mirroring what the
// server accepts per request.
const maxResponseSize = 1024 * 1024

// Response is the wire envelope for one command reply.
type Response struct {
	Status  string          `json:"status"`
	Command string          `json:"command,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the command succeeded.
func (r *Response) OK() bool { return r.Status == "ok" }

// CommandError is returned by Call when the server responds with
// status "error". It carries the server's message and the command
// that failed.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Message)
}

// Client sends commands to a broker control socket. Each Call opens a
// connection, sends one request line, reads one response line, and
// closes the connection.
type Client struct {
	socketPath string
}

// NewClient creates a client for the control socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call invokes a command and decodes its reply.
//
// On success, if result is non-nil and the response carries data, the
// data is unmarshaled into result. On a server-side failure the error
// is a *CommandError with the server's message; connection and
// encoding failures are plain errors.
func (c *Client) Call(ctx context.Context, command string, args []any, result any) error {
	response, err := c.send(ctx, Request{Command: command, Args: encodeArgs(args)})
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", command, c.socketPath, err)
	}

	if !response.OK() {
		return &CommandError{
			Command: command,
			Message: response.Message,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := json.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", command, err)
		}
	}
	return nil
}

// encodeArgs marshals caller argument values into raw messages for
// the request's args array. Unmarshalable values become JSON nulls;
// the server-side handler reports the shape problem.
func encodeArgs(args []any) []json.RawMessage {
	if len(args) == 0 {
		return nil
	}
	encoded := make([]json.RawMessage, len(args))
	for i, arg := range args {
		data, err := json.Marshal(arg)
		if err != nil {
			data = []byte("null")
		}
		encoded[i] = data
	}
	return encoded
}

// send connects to the socket, writes the request line, and reads the
// response line. Each call creates a new connection.
func (c *Client) send(ctx context.Context, request Request) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	line, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	line = append(line, '\n')

	if _, err := conn.Write(line); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the server's read loop sees EOF
	// once the response is on the wire.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	reader := bufio.NewReader(io.LimitReader(conn, maxResponseSize))
	responseLine, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var response Response
	if err := json.Unmarshal(responseLine, &response); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &response, nil
}
