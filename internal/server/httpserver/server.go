package httpserver

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// readHeaderTimeout bounds slow clients sending headers.
const readHeaderTimeout = 10 * time.Second

// Server is the API listener.
type Server struct {
	httpServer *http.Server
}

// New creates a server for handler on addr.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// SetTLSConfig installs a listener TLS config. With a config that supplies
// certificates, ListenAndServeTLS may be called with empty file names.
func (s *Server) SetTLSConfig(cfg *tls.Config) {
	s.httpServer.TLSConfig = cfg
}

// ListenAndServeTLS starts the HTTPS server.
func (s *Server) ListenAndServeTLS(certFile, keyFile string) error {
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
