package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"

	"askrelay/internal/session"
	"askrelay/pkg/interfaces"
	"askrelay/pkg/types"
)

// Server accepts one connection per ask request on a unix domain socket.
// Each connection is handled by its own goroutine: parse and validate the
// envelope, register the session, block until it resolves, write the
// resolution back as a single JSON line.
type Server struct {
	path     string
	store    *session.Store
	notifier interfaces.Notifier

	listener net.Listener
	running  bool
	mu       sync.Mutex
}

// NewServer creates a socket server bound to the given filesystem path
func NewServer(path string, store *session.Store, notifier interfaces.Notifier) *Server {
	return &Server{
		path:     path,
		store:    store,
		notifier: notifier,
	}
}

// Start binds the socket and begins accepting connections in the background.
// A stale socket file from a previous run is removed before binding.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerAlreadyRunning
	}

	if err := prepareSocketPath(s.path); err != nil {
		return fmt.Errorf("failed to prepare socket path: %w", err)
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to bind ask socket %s: %w", s.path, err)
	}

	s.listener = listener
	s.running = true

	go s.acceptLoop(listener)

	log.Printf("Ask socket server listening on %s", s.path)
	return nil
}

// Stop closes the listener and removes the socket file. In-flight
// connections keep their sessions; only new connections are refused.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServerNotRunning
	}
	s.running = false

	err := s.listener.Close()
	if removeErr := os.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) {
		log.Printf("Failed to remove socket file %s: %v", s.path, removeErr)
	}

	return err
}

// Path returns the socket filesystem path
func (s *Server) Path() string {
	return s.path
}

// acceptLoop hands each inbound connection to its own goroutine
func (s *Server) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Ask socket listener error: %v", err)
			continue
		}

		go func() {
			if err := s.handleConnection(conn); err != nil {
				log.Printf("Ask socket connection failed: %v", err)
			}
		}()
	}
}

// handleConnection runs one request/response cycle. The only blocking wait
// is the receive on the session's resolution channel; timeout enforcement
// belongs to the sweeper, never to the handler.
func (s *Server) handleConnection(conn net.Conn) error {
	defer func() { _ = conn.Close() }()

	request, err := readRequest(conn)
	if err != nil {
		return err
	}

	pending, event, err := s.store.Insert(request)
	if err != nil {
		return err
	}

	// The session stays valid even when nobody is listening for the notice
	if err := s.notifier.SessionCreated(*event); err != nil {
		log.Printf("Failed to emit session created event for %s: %v", pending.AskID, err)
	}

	batch := <-pending.Resolution()

	if err := writeResponse(conn, &batch); err != nil {
		return fmt.Errorf("failed to write ask response for session %s to socket: %w", pending.AskID, err)
	}

	return nil
}

// readRequest reads and validates the single-line JSON envelope. EOF after a
// complete payload is tolerated; any other read failure is surfaced as-is
// rather than as a parse error on the truncated line.
func readRequest(conn net.Conn) (*types.SocketRequest, error) {
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		if line == "" {
			return nil, ErrEmptyPayload
		}
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read ask socket payload: %w", err)
		}
	}

	var request types.SocketRequest
	if err := json.Unmarshal([]byte(line), &request); err != nil {
		return nil, fmt.Errorf("failed to parse ask socket payload: %w", err)
	}

	if err := request.Validate(); err != nil {
		return nil, err
	}

	return &request, nil
}

// writeResponse serializes the resolution batch as one JSON line
func writeResponse(conn net.Conn, batch *types.ResponseBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to serialize ask response: %w", err)
	}

	if _, err := conn.Write(append(data, '\n')); err != nil {
		return err
	}

	return nil
}

// prepareSocketPath creates parent directories and unlinks a stale socket
func prepareSocketPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
