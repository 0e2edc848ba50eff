package server

import (
	"context"
	"net/http"
	"time"
)

// Server encapsulates the HTTP server of the application, providing controlled startup and shutdown.
type Server struct {
	server *http.Server
}

// ListenAndServe starts the HTTP server and begins listening on the specified address.
// Blocks execution until the server is stopped or an error occurs.
// If server is stopped via Shutdown, method returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server with the provided context.
// Active requests are allowed to complete within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// NewServer creates a server exposing the assessment API on address.
// Sets timeouts for reading and writing, and limits header size.
func NewServer(address string, engine Engine) *Server {
	router := NewApiV1Router(engine)
	s := Server{&http.Server{
		Addr:           address,
		Handler:        router.Mux(),
		ReadTimeout:    time.Second * 3,
		WriteTimeout:   time.Second * 3,
		MaxHeaderBytes: 1024 * 10,
	}}

	return &s
}
