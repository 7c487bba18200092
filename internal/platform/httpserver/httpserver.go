package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Option adjusts the server built by New.
type Option func(*http.Server)

// WithLogger routes net/http's own errors (TLS handshakes, panics in
// handlers that escaped Recovery) to logger at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *http.Server) {
		if logger != nil {
			s.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
		}
	}
}

// WithWriteTimeout overrides the response write deadline. It must exceed the
// router's handler timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

// New builds the API server.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
