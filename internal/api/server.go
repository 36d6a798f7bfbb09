package api

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps the http.Server to provide graceful shutdown.
type Server struct {
	httpServer *http.Server
}

// NewServer creates a server on the given port. The handler also accepts
// cleartext HTTP/2 with prior knowledge, so h2c probes share the port.
func NewServer(port string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + port,
			Handler: h2c.NewHandler(handler, &http2.Server{}),
		},
	}
}

// Start runs the HTTP server in a new goroutine. Binding errors are returned
// synchronously; errors while serving are fatal.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "could not listen on %s", s.httpServer.Addr)
	}
	s.Serve(ln)
	return nil
}

// Serve runs the HTTP server on an existing listener in a new goroutine.
func (s *Server) Serve(ln net.Listener) {
	log.Printf("starting HTTP server on %s", ln.Addr())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("could not serve HTTP: %v", err)
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
