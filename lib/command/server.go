// Copyright 2026 The Waybus Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"time"
)

// HandlerFunc executes one command. args holds the request's "args"
// array undecoded, so each handler unmarshals exactly the shapes it
// expects. The returned value is marshaled into the response's "data"
// field; a nil result produces a response without data. A returned
// error becomes a "Handler error" response.
type HandlerFunc func(ctx context.Context, args []json.RawMessage) (any, error)

// Request is the wire shape of one command invocation: a single JSON
// line on the control socket.
type Request struct {
	Command string            `json:"command"`
	Args    []json.RawMessage `json:"args,omitempty"`
}

// writeTimeout is how long the server waits for a response write to
// complete. There is no read timeout: connections are persistent and
// a client may idle between commands indefinitely.
const writeTimeout = 10 * time.Second

// maxRequestSize is the maximum length of a single request line.
const maxRequestSize = 1024 * 1024

// Server answers command requests on a Unix socket. Connections are
// persistent: a client may send any number of newline-delimited
// requests over one connection and receives one response line per
// request, in order.
type Server struct {
	socketPath string
	logger     *slog.Logger
	handlers   map[string]HandlerFunc

	activeConnections sync.WaitGroup
}

// NewServer creates a command server for the given socket path. The
// socket is not bound until Serve is called.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		logger:     logger,
		handlers:   make(map[string]HandlerFunc),
	}
}

// Handle registers a handler for the given command name. Panics if
// called after Serve has started or if the command is already
// registered.
func (s *Server) Handle(command string, handler HandlerFunc) {
	if _, exists := s.handlers[command]; exists {
		panic(fmt.Sprintf("command.Server: duplicate handler for command %q", command))
	}
	s.handlers[command] = handler
}

// Commands returns the sorted names of all registered commands.
func (s *Server) Commands() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serve accepts connections on the control socket and dispatches
// requests to registered handlers. Blocks until ctx is cancelled,
// then closes all client connections and waits for their goroutines
// to finish.
//
// A stale socket file from a previous run is removed before binding;
// the live socket file is removed again on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Closing the listener is what breaks Accept out on cancellation.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("command socket listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection serves one persistent client until it hangs up or
// the server shuts down.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Persistent connections block in Scan between requests; closing
	// the connection is what unblocks them at shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		s.dispatch(ctx, conn, line)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Debug("command connection read ended", "error", err)
	}
}

// dispatch parses one request line, runs its handler, and writes the
// single response line.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, line []byte) {
	var request Request
	if err := json.Unmarshal(line, &request); err != nil {
		s.logger.Error("unparseable command request", "error", err)
		s.writeResponse(conn, Response{
			Status:  "error",
			Message: "Invalid JSON format.",
		})
		return
	}

	handler, exists := s.handlers[request.Command]
	if !exists {
		s.writeResponse(conn, Response{
			Status:  "error",
			Command: request.Command,
			Message: fmt.Sprintf("Unknown command: %s", request.Command),
		})
		return
	}

	s.logger.Debug("handling command", "command", request.Command)
	result, err := handler(ctx, request.Args)
	if err != nil {
		s.logger.Error("command handler failed",
			"command", request.Command,
			"error", err,
		)
		s.writeResponse(conn, Response{
			Status:  "error",
			Command: request.Command,
			Message: fmt.Sprintf("Handler error: %v", err),
		})
		return
	}

	response := Response{Status: "ok", Command: request.Command}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			s.writeResponse(conn, Response{
				Status:  "error",
				Command: request.Command,
				Message: fmt.Sprintf("Handler error: marshaling response: %v", err),
			})
			return
		}
		response.Data = data
	}
	s.writeResponse(conn, response)
}

// writeResponse sends one response line. Write failures are logged at
// debug level; the read side will notice the dead connection.
func (s *Server) writeResponse(conn net.Conn, response Response) {
	line, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("response serialization failed", "error", err)
		return
	}
	line = append(line, '\n')

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(line); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}
