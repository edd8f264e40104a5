package server

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/jassi-singh/aether-kv/internal/engine"
)

// Server accepts connections one at a time and runs the request
// handler against a single shared engine instance. There is no
// concurrency between connections or between commands within a
// connection.
type Server struct {
	addr     string
	listener net.Listener
	handler  *Handler
}

// New builds a Server bound to addr, serving requests against e.
func New(addr string, e engine.Engine) *Server {
	return &Server{addr: addr, handler: NewHandler(e)}
}

// ListenAndServe binds addr and runs the accept loop until Close is
// called or Accept returns an error.
func (s *Server) ListenAndServe() error {
	listener, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Listen binds addr and returns the listener without starting the
// accept loop. Split out from ListenAndServe so tests can bind to an
// ephemeral port and learn its address before serving.
func (s *Server) Listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	slog.Info("server: listening", "addr", listener.Addr())
	return listener, nil
}

// Serve runs the accept loop against an already-bound listener until
// Close is called or Accept returns an error.
func (s *Server) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		s.serve(conn)
	}
}

// serve runs the handler against a single connection, logging and
// continuing on any handler error rather than crashing the process.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	slog.Info("server: connection accepted", "remote", conn.RemoteAddr())

	if err := s.handler.Handle(conn); err != nil {
		slog.Error("server: handler error", "remote", conn.RemoteAddr(), "error", err)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
